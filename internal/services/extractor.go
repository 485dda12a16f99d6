package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/logger"
	"alfredoptarigan/cv-matcher/internal/metrics"
	"alfredoptarigan/cv-matcher/internal/models"
)

const DefaultMaxFileSize int64 = 10 * 1024 * 1024

type TextExtractor interface {
	// Extract returns the cleaned text of doc. Errors wrap ErrUnsupportedFormat,
	// ErrSizeExceeded or ErrExtractionFailure.
	Extract(ctx context.Context, doc *models.Document) (string, error)
}

type textExtractor struct {
	pdfParser   PDFParserService
	docxParser  DocxParserService
	decoder     TextDecoder
	maxFileSize int64
	metrics     *metrics.Recorder
	logger      *zap.Logger
}

func NewTextExtractor(
	pdfParser PDFParserService,
	docxParser DocxParserService,
	decoder TextDecoder,
	maxFileSize int64,
	recorder *metrics.Recorder,
	log *zap.Logger,
) TextExtractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	if decoder == nil {
		decoder = NewTextDecoder(log)
	}
	if docxParser == nil {
		docxParser = NewDocxParserService()
	}
	if pdfParser == nil {
		pdfParser = NewPDFParserService(nil, recorder, log)
	}
	return &textExtractor{
		pdfParser:   pdfParser,
		docxParser:  docxParser,
		decoder:     decoder,
		maxFileSize: maxFileSize,
		metrics:     recorder,
		logger:      log,
	}
}

func (e *textExtractor) Extract(ctx context.Context, doc *models.Document) (string, error) {
	if doc == nil || !doc.MediaType.Supported() {
		var mediaType models.MediaType
		if doc != nil {
			mediaType = doc.MediaType
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}

	size := int64(len(doc.Content))
	if size > e.maxFileSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrSizeExceeded, size, e.maxFileSize)
	}

	started := time.Now()
	raw, err := e.extractRaw(ctx, doc)
	e.metrics.ObserveExtraction(string(doc.MediaType), err == nil, started)
	if err != nil {
		e.logger.Warn("extraction failed",
			zap.String("document", doc.Name),
			zap.String("media_type", string(doc.MediaType)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s %q: %w", ErrExtractionFailure, doc.MediaType, doc.Name, err)
	}

	cleaned := CleanText(raw)
	e.logger.Debug("document extracted",
		zap.String("document", doc.Name),
		zap.String("media_type", string(doc.MediaType)),
		zap.Int64("bytes", size),
		logger.Text("text", cleaned, 80),
	)

	return cleaned, nil
}

func (e *textExtractor) extractRaw(ctx context.Context, doc *models.Document) (string, error) {
	switch doc.MediaType {
	case models.MediaTypeText:
		text, _ := e.decoder.Decode(doc.Content)
		return text, nil
	case models.MediaTypePDF:
		return e.pdfParser.ExtractText(ctx, doc.Content)
	case models.MediaTypeDOCX:
		return e.docxParser.ExtractText(doc.Content)
	}
	return "", fmt.Errorf("no reader for %q", doc.MediaType)
}
