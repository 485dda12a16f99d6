package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/cv-matcher/internal/metrics"
)

func TestPDFExtractTextLayer(t *testing.T) {
	content := buildPDF("Senior Go Developer", "Kubernetes and Postgres")
	recognizer := &stubRecognizer{}

	parser := NewPDFParserService(recognizer, nil, nil)
	result, err := parser.ExtractTextWithMetaData(context.Background(), content)
	if err != nil {
		t.Fatalf("ExtractTextWithMetaData() error = %v", err)
	}

	if result.PageCount != 2 {
		t.Fatalf("PageCount = %d, want 2", result.PageCount)
	}
	if !strings.Contains(result.Text, "Senior Go Developer") || !strings.Contains(result.Text, "Kubernetes and Postgres") {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if strings.Index(result.Text, "Senior") > strings.Index(result.Text, "Kubernetes") {
		t.Fatalf("pages out of order: %q", result.Text)
	}
	if len(recognizer.pages) != 0 {
		t.Fatalf("ocr should not run for pages with text, ran for %v", recognizer.pages)
	}
}

func TestPDFFallsBackToOCRForImageOnlyPage(t *testing.T) {
	content := buildPDF("Senior Go Developer", "")
	recognizer := &stubRecognizer{text: map[int]string{2: "Scanned Certificate"}}
	recorder := metrics.New()

	parser := NewPDFParserService(recognizer, recorder, nil)
	result, err := parser.ExtractTextWithMetaData(context.Background(), content)
	if err != nil {
		t.Fatalf("ExtractTextWithMetaData() error = %v", err)
	}

	if len(recognizer.pages) != 1 || recognizer.pages[0] != 2 {
		t.Fatalf("expected ocr on page 2 only, got %v", recognizer.pages)
	}
	if !strings.Contains(result.Text, "Scanned Certificate") {
		t.Fatalf("ocr text missing from %q", result.Text)
	}
	if len(result.OCRPages) != 1 || result.OCRPages[0] != 2 {
		t.Fatalf("OCRPages = %v, want [2]", result.OCRPages)
	}
}

func TestPDFOCRFailureIsNotFatal(t *testing.T) {
	content := buildPDF("Senior Go Developer", "")
	recognizer := &stubRecognizer{err: errors.New("tesseract: exit status 1")}
	core, logs := observer.New(zap.WarnLevel)

	parser := NewPDFParserService(recognizer, nil, zap.New(core))
	result, err := parser.ExtractTextWithMetaData(context.Background(), content)
	if err != nil {
		t.Fatalf("ocr failure must not fail extraction, got %v", err)
	}

	if !strings.Contains(result.Text, "Senior Go Developer") {
		t.Fatalf("text layer lost: %q", result.Text)
	}
	if len(result.FailedPages) != 1 || result.FailedPages[0] != 2 {
		t.Fatalf("FailedPages = %v, want [2]", result.FailedPages)
	}
	if logs.FilterMessage("ocr failed for page").Len() != 1 {
		t.Fatalf("expected one ocr failure warning")
	}
}

func TestPDFWithoutRecognizer(t *testing.T) {
	parser := NewPDFParserService(nil, nil, nil)

	text, err := parser.ExtractText(context.Background(), buildPDF(""))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if strings.TrimSpace(text) != "" {
		t.Fatalf("expected empty text for image-only pdf without ocr, got %q", text)
	}
}

func TestPDFMalformedInput(t *testing.T) {
	parser := NewPDFParserService(nil, nil, nil)

	inputs := map[string][]byte{
		"not a pdf": []byte("just some text, definitely not a pdf document"),
		"truncated": buildPDF("Senior Go Developer")[:60],
		"empty":     nil,
	}
	for name, content := range inputs {
		if _, err := parser.ExtractText(context.Background(), content); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
