// Package textextractor picks the right reader for an uploaded resume and
// flags implausibly short results.
package textextractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	obsadapter "github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/observability"
)

// SuspectTextLen is the length below which extracted text is logged as suspect.
const SuspectTextLen = 50

// AllowedExtensions are the resume formats accepted for upload.
var AllowedExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

// Primary is an in-process extractor that only understands some formats.
type Primary interface {
	domain.TextExtractor
	Supports(fileName string) bool
}

// Composite tries the primary extractor for the formats it supports and the
// fallback (Tika) for everything else or when the primary fails.
type Composite struct {
	primary  Primary
	fallback domain.TextExtractor
}

// New builds a Composite. Either extractor may be nil.
func New(primary Primary, fallback domain.TextExtractor) *Composite {
	return &Composite{primary: primary, fallback: fallback}
}

// Extract returns the document text. Short output is logged and counted but
// still returned; the pipeline decides what to make of it.
func (c *Composite) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrInvalidArgument, fileName)
	}
	lg := observability.LoggerFromContext(ctx).With(slog.String("file", fileName))

	var primaryErr error
	if c.primary != nil && c.primary.Supports(fileName) {
		text, err := c.primary.Extract(ctx, fileName, data)
		if err == nil && strings.TrimSpace(text) != "" {
			c.check(lg, fileName, text)
			return text, nil
		}
		primaryErr = err
		if primaryErr == nil {
			primaryErr = errors.New("no text found")
		}
		lg.Warn("local text extraction failed, trying fallback", slog.Any("error", primaryErr))
	}
	if c.fallback == nil {
		if primaryErr != nil {
			return "", fmt.Errorf("op=textextractor.Extract: %w", primaryErr)
		}
		return "", fmt.Errorf("op=textextractor.Extract: %w: no extractor for %s", domain.ErrUnsupportedMedia, fileName)
	}
	text, err := c.fallback.Extract(ctx, fileName, data)
	if err != nil {
		return "", fmt.Errorf("op=textextractor.Extract: %w", errors.Join(primaryErr, err))
	}
	c.check(lg, fileName, text)
	return text, nil
}

func (c *Composite) check(lg *slog.Logger, fileName, text string) {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n >= SuspectTextLen {
		return
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = "none"
	}
	obsadapter.SuspectResumeTextTotal.WithLabelValues(ext).Inc()
	lg.Warn("extracted resume text is suspiciously short", slog.Int("chars", n))
}
