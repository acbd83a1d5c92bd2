// Package label holds the canonical label form shared by the model loader
// and the advice table.
package label

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Normalize trims, lowercases and collapses whitespace runs to one space.
// Both the label table and advice lookups key on this form.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Display turns a canonical label into the title-cased form shown to users
// and stored in scan history, e.g. "tomato___early_blight" -> "Tomato   Early Blight".
func Display(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

type Table struct {
	names []string
}

func NewTable(names []string) Table {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return Table{names: out}
}

// ParseTable reads one class name per line. Trailing blank lines are
// dropped; a blank line between labels would shift every later index, so it
// is rejected.
func ParseTable(r io.Reader) (Table, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return Table{}, fmt.Errorf("read labels: %w", err)
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return Table{}, fmt.Errorf("label asset is empty")
	}
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			return Table{}, fmt.Errorf("blank label at line %d", i+1)
		}
	}

	return NewTable(lines), nil
}

func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	return ParseTable(f)
}

func (t Table) Len() int { return len(t.names) }

// Name returns the canonical label at index i, or "" when i is out of range.
func (t Table) Name(i int) string {
	if i < 0 || i >= len(t.names) {
		return ""
	}
	return t.names[i]
}

func (t Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}
