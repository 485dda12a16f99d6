package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PageRecognizer returns the OCR text of one 1-indexed page of a PDF.
type PageRecognizer interface {
	RecognizePage(ctx context.Context, pdf []byte, page int) (string, error)
}

type TesseractOptions struct {
	PdftoppmPath  string
	TesseractPath string
	Language      string
	DPI           int
	Timeout       time.Duration
}

type tesseractRecognizer struct {
	opts   TesseractOptions
	logger *zap.Logger
}

// NewTesseractRecognizer renders pages with poppler's pdftoppm and reads them
// with the tesseract CLI. Both must be on PATH or configured explicitly.
func NewTesseractRecognizer(opts TesseractOptions, logger *zap.Logger) PageRecognizer {
	if opts.PdftoppmPath == "" {
		opts.PdftoppmPath = "pdftoppm"
	}
	if opts.TesseractPath == "" {
		opts.TesseractPath = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &tesseractRecognizer{opts: opts, logger: logger}
}

func (r *tesseractRecognizer) RecognizePage(ctx context.Context, pdf []byte, page int) (string, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp("", "cv-matcher-ocr-")
	if err != nil {
		return "", fmt.Errorf("failed to create ocr workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return "", fmt.Errorf("failed to write ocr input: %w", err)
	}

	prefix := filepath.Join(dir, "page")
	pageArg := strconv.Itoa(page)
	if _, err := r.run(ctx, r.opts.PdftoppmPath,
		"-f", pageArg, "-l", pageArg,
		"-r", strconv.Itoa(r.opts.DPI),
		"-png", "-singlefile",
		input, prefix,
	); err != nil {
		return "", fmt.Errorf("failed to render page %d: %w", page, err)
	}

	out, err := r.run(ctx, r.opts.TesseractPath, prefix+".png", "stdout", "-l", r.opts.Language)
	if err != nil {
		return "", fmt.Errorf("failed to recognize page %d: %w", page, err)
	}

	r.logger.Debug("ocr page recognized", zap.Int("page", page), zap.Int("chars", len(out)))
	return out, nil
}

func (r *tesseractRecognizer) run(ctx context.Context, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", filepath.Base(name), err, msg)
		}
		return "", fmt.Errorf("%s: %w", filepath.Base(name), err)
	}

	return stdout.String(), nil
}
