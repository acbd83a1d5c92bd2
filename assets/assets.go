// Package assets embeds the reference label table shipped with the model.
package assets

import (
	"bytes"
	_ "embed"

	"github.com/Brownie44l1/plant-doctor/internal/label"
)

//go:embed labels.txt
var labelsTxt []byte

// Labels returns the reference 61-class label table.
func Labels() (label.Table, error) {
	return label.ParseTable(bytes.NewReader(labelsTxt))
}
