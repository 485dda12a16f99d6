package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"alfredoptarigan/cv-matcher/internal/metrics"
)

type PDFParserService interface {
	ExtractText(ctx context.Context, content []byte) (string, error)
	ExtractTextWithMetaData(ctx context.Context, content []byte) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	PageCount int
	// OCRPages lists the 1-indexed pages whose text came from OCR.
	OCRPages []int
	// FailedPages lists pages that produced no text at all.
	FailedPages []int
}

type pdfParserService struct {
	recognizer PageRecognizer
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewPDFParserService reads the text layer page by page. Pages without text
// are passed to recognizer; a nil recognizer disables OCR.
func NewPDFParserService(recognizer PageRecognizer, recorder *metrics.Recorder, logger *zap.Logger) PDFParserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pdfParserService{
		recognizer: recognizer,
		metrics:    recorder,
		logger:     logger,
	}
}

func (p *pdfParserService) ExtractText(ctx context.Context, content []byte) (string, error) {
	result, err := p.ExtractTextWithMetaData(ctx, content)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

func (p *pdfParserService) ExtractTextWithMetaData(ctx context.Context, content []byte) (*PDFContent, error) {
	r, totalPage, err := openPDF(content)
	if err != nil {
		return nil, err
	}

	result := &PDFContent{PageCount: totalPage}
	pages := make([]string, 0, totalPage)

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := p.pageText(r, pageIndex)
		if strings.TrimSpace(text) == "" {
			text = p.recognize(ctx, content, pageIndex)
			if strings.TrimSpace(text) != "" {
				result.OCRPages = append(result.OCRPages, pageIndex)
			} else {
				result.FailedPages = append(result.FailedPages, pageIndex)
			}
		}

		pages = append(pages, text)
	}

	result.Text = strings.Join(pages, "\n")
	if strings.TrimSpace(result.Text) == "" {
		p.logger.Warn("no text content found in PDF", zap.Int("pages", totalPage))
	}

	return result, nil
}

func (p *pdfParserService) pageText(r *pdf.Reader, pageIndex int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Warn("pdf page text layer panicked", zap.Int("page", pageIndex), zap.Any("panic", rec))
			text = ""
		}
	}()

	page := r.Page(pageIndex)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		p.logger.Warn("failed to read pdf page text layer", zap.Int("page", pageIndex), zap.Error(err))
		return ""
	}
	return text
}

// recognize never fails: an OCR error leaves the page empty.
func (p *pdfParserService) recognize(ctx context.Context, content []byte, pageIndex int) string {
	if p.recognizer == nil {
		p.logger.Debug("page has no text layer and ocr is disabled", zap.Int("page", pageIndex))
		return ""
	}

	text, err := p.recognizer.RecognizePage(ctx, content, pageIndex)
	if err != nil {
		p.metrics.OCRPage(false)
		p.logger.Warn("ocr failed for page", zap.Int("page", pageIndex), zap.Error(err))
		return ""
	}

	p.metrics.OCRPage(true)
	p.logger.Debug("used ocr for page", zap.Int("page", pageIndex))
	return text
}

// openPDF turns parser panics on malformed input into errors.
func openPDF(content []byte) (r *pdf.Reader, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, pages, err = nil, 0, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	r, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	return r, r.NumPage(), nil
}
