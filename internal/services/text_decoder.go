package services

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const byteOrderMark = "\ufeff"

type TextDecoder interface {
	// Decode converts raw bytes to UTF-8 and reports the encoding it used.
	Decode(raw []byte) (string, string)
}

type textDecoder struct {
	logger *zap.Logger
}

func NewTextDecoder(logger *zap.Logger) TextDecoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &textDecoder{logger: logger}
}

// Decode guesses the encoding from a BOM or UTF-8 validity of the leading
// bytes and falls back to windows-1252. Bytes the chosen decoder cannot map
// are replaced with U+FFFD instead of failing.
func (d *textDecoder) Decode(raw []byte) (string, string) {
	enc, name, certain := charset.DetermineEncoding(raw, "text/plain")

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		d.logger.Warn("text decode failed, using permissive utf-8",
			zap.String("encoding", name),
			zap.Error(err),
		)
		decoded, name = raw, "utf-8"
	} else {
		d.logger.Debug("decoded text document",
			zap.String("encoding", name),
			zap.Bool("certain", certain),
		)
	}

	text := strings.ToValidUTF8(string(decoded), "\uFFFD")
	return strings.TrimPrefix(text, byteOrderMark), name
}
