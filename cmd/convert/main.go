// Command convert runs the conversion pipeline over local PDF files and
// prints the structured results as JSON, without going through the HTTP
// front end.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"medparse/internal/config"
	"medparse/internal/extractor"
	"medparse/internal/service"
	"medparse/internal/structurer/zhipu"
)

func main() {
	timeout := flag.Duration("timeout", 15*time.Minute, "overall batch timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: convert [-timeout d] file.pdf [file.pdf ...]")
		os.Exit(2)
	}

	if err := run(flag.Args(), *timeout); err != nil {
		log.Fatal(err)
	}
}

func run(paths []string, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	extractClient, err := extractor.New(&cfg.Extract)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction client: %w", err)
	}
	pipeline := service.NewPipelineService(extractClient, zhipu.NewClient(&cfg.Zhipu), cfg.Pipeline)

	docs := make([]service.ConvertInput, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		docs = append(docs, service.ConvertInput{FileName: filepath.Base(path), FileBytes: data})
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	results, err := pipeline.Convert(ctx, docs)
	if err != nil {
		return err
	}

	out := make([]map[string]interface{}, 0, len(results))
	for _, res := range results {
		item := map[string]interface{}{"filename": res.FileName}
		if res.Err != nil {
			item["error"] = res.Err.Error()
		} else {
			item["data"] = res.Invoice
		}
		out = append(out, item)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
