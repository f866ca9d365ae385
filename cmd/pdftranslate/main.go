// Command pdftranslate drives the extraction-classification-translation
// pipeline over a single input PDF and writes the resulting Document as
// JSON, the same "record what happened, let a real document writer take
// it from there" boundary translate_single_pdf draws around
// BabelDocPDFTranslator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"latex-translator/internal/logger"
	"latex-translator/internal/model"
	"latex-translator/internal/ocrapi"
	"latex-translator/internal/pdfsource"
	"latex-translator/internal/pipeline"
	"latex-translator/internal/translateapi"
)

func main() {
	var (
		targetLang = flag.String("lang", "es", "target language for translation")
		outputDir  = flag.String("output", "", "output directory (defaults to <input dir>/output)")
		ocrLang    = flag.String("ocr-lang", "eng", "Tesseract language code for image OCR")
		noImages   = flag.Bool("no-images", false, "skip embedded image extraction")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: pdftranslate [flags] <input.pdf>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	inputPDF := flag.Arg(0)
	if _, err := os.Stat(inputPDF); err != nil {
		fmt.Printf("Error: PDF not found: %s\n", inputPDF)
		os.Exit(2)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		fmt.Println("Error: OPENAI_API_KEY not set")
		os.Exit(1)
	}
	baseURL := os.Getenv("OPENAI_BASE_URL")
	modelName := os.Getenv("OPENAI_MODEL")

	dir := *outputDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(inputPDF), "output")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Printf("Error: cannot create output directory: %v\n", err)
		os.Exit(2)
	}
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		fmt.Printf("Error: cannot create image directory: %v\n", err)
		os.Exit(2)
	}

	if err := logger.Init(logger.DefaultConfig()); err != nil {
		fmt.Printf("Warning: logger init failed: %v\n", err)
	}
	defer logger.Close()

	ctx := context.Background()

	translator, err := translateapi.New(ctx, translateapi.Config{APIKey: apiKey, BaseURL: baseURL, Model: modelName})
	if err != nil {
		fmt.Printf("Error: cannot initialize translator: %v\n", err)
		os.Exit(2)
	}

	ocrClient, err := ocrapi.New(*ocrLang)
	if err != nil {
		logger.Warn("OCR unavailable, continuing without it", logger.Err(err))
		ocrClient = nil
	}
	if ocrClient != nil {
		defer ocrClient.Close()
	}

	srcCfg := pdfsource.DefaultConfig()
	srcCfg.ExtractImages = !*noImages
	srcCfg.ImageWorkDir = imagesDir
	src := pdfsource.New(srcCfg)

	cfg := pipeline.DefaultConfig(*targetLang)
	cfg.ImageOutputDir = imagesDir
	cfg.CachePath = filepath.Join(dir, "translation_cache.json")
	cfg.JournalDir = dir

	fmt.Printf("Input:  %s\n", inputPDF)
	fmt.Printf("Output: %s\n", dir)
	fmt.Printf("Target: %s\n", *targetLang)
	fmt.Println()

	start := time.Now()
	doc, counts := pipeline.Run(ctx, inputPDF, src, translator, ocrCollaborator(ocrClient), cfg)
	elapsed := time.Since(start)

	docPath := filepath.Join(dir, "document.json")
	if err := writeDocument(doc, docPath); err != nil {
		fmt.Printf("Error: cannot write document: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("=== Translation Complete (%s) ===\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Pages:              %d\n", doc.TotalPages)
	fmt.Printf("Blocks:             %d\n", len(doc.Blocks))
	fmt.Printf("ToC entries:        %d\n", len(doc.ToC))
	fmt.Printf("API calls:          %d\n", counts.APICalls)
	fmt.Printf("Cache hits (mem):   %d\n", counts.CacheHitsMemory)
	fmt.Printf("Cache hits (disk):  %d\n", counts.CacheHitsPersistent)
	fmt.Printf("Translation errors: %d\n", counts.TranslationErrors)
	fmt.Printf("Regions kept:       %d\n", counts.RegionsKept)
	fmt.Printf("Regions filtered:   %d\n", counts.RegionsFiltered)
	fmt.Printf("Document:           %s\n", docPath)
}

// ocrCollaborator adapts a possibly-nil *ocrapi.Client to pipeline.OCR,
// since a nil interface value holding a non-nil *ocrapi.Client would
// still compare non-nil to the pipeline's own nil check.
func ocrCollaborator(c *ocrapi.Client) pipeline.OCR {
	if c == nil {
		return nil
	}
	return c
}

func writeDocument(doc model.Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
