package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"medsummary/internal/ocr"
)

// Example demonstrates recognizing a scanned lab report with Cloud Vision.
func Example() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Credentials are read from GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS
	service, err := ocr.NewGoogleVisionOCRService(ctx, "en")
	if err != nil {
		log.Fatalf("Failed to create OCR service: %v", err)
	}
	defer service.Close()

	content, err := os.ReadFile("lab_report.jpg")
	if err != nil {
		log.Fatalf("Failed to read report: %v", err)
	}

	extraction, err := ocr.NewExtractor(service).Extract(ctx, content)
	if err != nil {
		log.Fatalf("Failed to extract text: %v", err)
	}

	fmt.Printf("Extracted %d characters\n", len(extraction.RawText))
	for _, reading := range extraction.ParsedResults {
		fmt.Printf("  %s = %s %s (normal %s-%s)\n",
			reading.Test, reading.Value, reading.Unit, reading.Range.Min, reading.Range.Max)
	}
}

// ExampleNewDocumentAIOCRService shows the Document AI backend with a regional processor.
func ExampleNewDocumentAIOCRService() {
	ctx := context.Background()

	service, err := ocr.NewDocumentAIOCRService(ctx, ocr.DocumentAIConfig{
		ProjectID:   os.Getenv("GOOGLE_CLOUD_PROJECT"),
		Location:    "eu",
		ProcessorID: os.Getenv("DOCUMENT_AI_PROCESSOR_ID"),
	})
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Fatalf("Please set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")
		}
		log.Fatalf("Failed to create OCR service: %v", err)
	}
	defer service.Close()

	file, err := os.Open("discharge_summary.pdf")
	if err != nil {
		log.Fatalf("Failed to open document: %v", err)
	}
	defer file.Close()

	result, err := service.ProcessDocumentWithMetadata(ctx, file)
	if err != nil {
		log.Fatalf("OCR failed: %v", err)
	}
	fmt.Printf("%d pages, %.1f%% confidence, %d chars\n",
		result.PageCount, result.Confidence*100, len(result.Text))
}

// ExampleNewTesseractOCRService uses the local tesseract binary.
func ExampleNewTesseractOCRService() {
	service, err := ocr.NewTesseractOCRService("tesseract", "eng")
	if err != nil {
		log.Fatalf("Tesseract is not installed: %v", err)
	}

	file, err := os.Open("blood_panel.png")
	if err != nil {
		log.Fatalf("Failed to open image: %v", err)
	}
	defer file.Close()

	text, err := service.ProcessDocument(context.Background(), file)
	if err != nil {
		log.Fatalf("OCR failed: %v", err)
	}
	fmt.Println(ocr.NormalizeText(text))
}
