// Command scan classifies a single leaf photo from the command line and
// manages the local scan history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Brownie44l1/plant-doctor/internal/config"
	"github.com/Brownie44l1/plant-doctor/internal/history"
	"github.com/Brownie44l1/plant-doctor/internal/model"
	"github.com/Brownie44l1/plant-doctor/internal/pipeline"
	"github.com/Brownie44l1/plant-doctor/internal/preprocess"
)

func main() {
	imagePath := flag.String("image", "", "path of the leaf photo to classify")
	showHistory := flag.Bool("history", false, "list scan history, newest first")
	clearAll := flag.Bool("clear", false, "delete all scan history")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *imagePath == "" && !*showHistory && !*clearAll {
		flag.Usage()
		os.Exit(2)
	}

	root, err := config.Root()
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer store.Close()

	switch {
	case *clearAll:
		if err := store.ClearAll(ctx); err != nil {
			log.Fatalf("Failed to clear history: %v", err)
		}
		fmt.Println("History cleared")
	case *showHistory:
		if err := printHistory(ctx, store); err != nil {
			log.Fatalf("Failed to list history: %v", err)
		}
	default:
		if err := scan(ctx, cfg, store, *imagePath); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
	}
}

func scan(ctx context.Context, cfg config.Config, store *history.Store, path string) error {
	img, _, err := preprocess.DecodeFile(path)
	if err != nil {
		return err
	}

	engine, err := model.Load(cfg.Model)
	if err != nil {
		return err
	}
	defer engine.Close()

	recorder := history.NewRecorder(store, 1, log.Default())
	defer recorder.Close()

	scanner := pipeline.NewScanner(pipeline.NewClassifier(engine, cfg.Calibrator()), recorder)
	out, persisted, err := scanner.Scan(ctx, img, path)
	if err != nil {
		return err
	}

	if out.Status == pipeline.StatusTooDark {
		fmt.Println("Image too dark 😢")
		fmt.Println("Please retake in better lighting")
		return nil
	}

	res := out.Result
	fmt.Printf("Disease: %s\n", res.DisplayLabel)
	fmt.Printf("Confidence: %s\n", res.ConfidenceText())
	fmt.Println(res.Advice)
	if res.NeedsRetake {
		fmt.Println("⚠️ Low confidence or unknown prediction. Try retaking the photo.")
	}

	if p := <-persisted; p.Err != nil {
		return fmt.Errorf("failed to record scan: %w", p.Err)
	}
	return nil
}

func printHistory(ctx context.Context, store *history.Store) error {
	items, err := store.ListAllDescendingByTime(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No scans yet")
		return nil
	}
	for _, it := range items {
		ts := time.UnixMilli(it.Timestamp).Format("02 Jan 2006 • 03:04 PM")
		fmt.Printf("%4d  %-40s  Confidence: %-8s  %s  %s\n", it.ID, it.Prediction, it.Confidence, ts, it.ImageRef)
	}
	return nil
}
