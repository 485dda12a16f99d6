package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"alfredoptarigan/cv-matcher/internal/models"
)

var errStubUnavailable = errors.New("stub provider unavailable")

// stubEmbedder returns vectors from a map keyed by text; unknown texts get a
// bag-of-letters vector so that identical texts embed identically.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	failAll bool
	calls   []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)

	if s.failAll || s.fail[text] {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, errStubUnavailable)
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return letterVector(text), nil
}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

type stubBackend struct {
	mu     sync.Mutex
	vector []float32
	errs   []error
	inputs []string
}

func (s *stubBackend) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, text)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.vector, nil
}

type stubGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []generatorCall
}

type generatorCall struct {
	system string
	turns  []models.Turn
}

func (s *stubGenerator) GenerateChat(_ context.Context, systemPrompt string, turns []models.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, generatorCall{system: systemPrompt, turns: append([]models.Turn(nil), turns...)})
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "ok", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *stubGenerator) lastCall() generatorCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type stubRecognizer struct {
	text  map[int]string
	err   error
	pages []int
}

func (s *stubRecognizer) RecognizePage(_ context.Context, _ []byte, page int) (string, error) {
	s.pages = append(s.pages, page)
	if s.err != nil {
		return "", s.err
	}
	return s.text[page], nil
}

type stubVectorStore struct {
	mu      sync.Mutex
	vectors map[string][]float32
	getErr  error
	putErr  error
	puts    int
}

func (s *stubVectorStore) GetVector(_ context.Context, id string) ([]float32, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.vectors[id]
	return v, ok, nil
}

func (s *stubVectorStore) UpsertVector(_ context.Context, id string, vector []float32, _ map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	if s.vectors == nil {
		s.vectors = make(map[string][]float32)
	}
	s.vectors[id] = vector
	return nil
}

// buildPDF writes a minimal PDF whose pages show the given strings with a
// Helvetica text layer. An empty string produces a page with no content
// stream, as a scanned page would have.
func buildPDF(pages ...string) []byte {
	var objects []string
	// 1: catalog, 2: pages, 3: font, then page/content pairs.
	kids := make([]string, 0, len(pages))
	var pageObjects []string
	next := 4
	for _, text := range pages {
		pageID := next
		next++
		kids = append(kids, fmt.Sprintf("%d 0 R", pageID))
		if text == "" {
			pageObjects = append(pageObjects,
				"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
			continue
		}
		contentID := next
		next++
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		pageObjects = append(pageObjects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentID),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	objects = append(objects, pageObjects...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
