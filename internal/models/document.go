package models

import "strings"

type MediaType string

const (
	MediaTypeText MediaType = "text"
	MediaTypePDF  MediaType = "pdf"
	MediaTypeDOCX MediaType = "docx"
)

// Document is raw uploaded content plus its declared or sniffed type.
type Document struct {
	Name      string
	MediaType MediaType
	Content   []byte
}

func (m MediaType) Supported() bool {
	switch m {
	case MediaTypeText, MediaTypePDF, MediaTypeDOCX:
		return true
	}
	return false
}

// ParseMediaType accepts type tags and file extensions ("pdf", ".txt", "DOCX").
// ".doc" is routed to the docx reader.
func ParseMediaType(s string) (MediaType, bool) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "text", "txt", "plain", "text/plain":
		return MediaTypeText, true
	case "pdf", "application/pdf":
		return MediaTypePDF, true
	case "docx", "doc":
		return MediaTypeDOCX, true
	}
	return MediaType(s), false
}
