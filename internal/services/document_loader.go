package services

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/cv-matcher/internal/models"
)

type DocumentLoader interface {
	// LoadDocument reads path and resolves its media type from declared, the
	// file extension or the content, in that order.
	LoadDocument(path, declared string) (*models.Document, error)
}

type documentLoader struct {
	maxFileSize int64
}

func NewDocumentLoader(maxFileSize int64) DocumentLoader {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &documentLoader{maxFileSize: maxFileSize}
}

func (l *documentLoader) LoadDocument(path, declared string) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	// Read one byte past the limit so oversize files are reported, not truncated.
	content, err := io.ReadAll(io.LimitReader(f, l.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(content)) > l.maxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrSizeExceeded, filepath.Base(path), l.maxFileSize)
	}

	mediaType, err := resolveMediaType(declared, filepath.Ext(path), content)
	if err != nil {
		return nil, err
	}

	return &models.Document{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Content:   content,
	}, nil
}

func resolveMediaType(declared, ext string, content []byte) (models.MediaType, error) {
	if strings.TrimSpace(declared) != "" {
		if mt, ok := models.ParseMediaType(declared); ok {
			return mt, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, declared)
	}

	if ext != "" {
		if mt, ok := models.ParseMediaType(ext); ok {
			return mt, nil
		}
	}

	if mt, ok := SniffMediaType(content); ok {
		return mt, nil
	}

	return "", fmt.Errorf("%w: cannot determine type of %q file", ErrUnsupportedFormat, ext)
}

// SniffMediaType recognizes PDF and zip (docx) signatures and plain text.
func SniffMediaType(content []byte) (models.MediaType, bool) {
	switch {
	case bytes.HasPrefix(content, []byte("%PDF-")):
		return models.MediaTypePDF, true
	case bytes.HasPrefix(content, []byte("PK\x03\x04")):
		return models.MediaTypeDOCX, true
	case strings.HasPrefix(http.DetectContentType(content), "text/plain"):
		return models.MediaTypeText, true
	}
	return "", false
}
