// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns downloaded PDFs into plain text with pluggable
// backends. Extraction never fails from the caller's point of view: any
// backend error or panic yields empty text, and the caller falls back to
// the abstract.
package convert

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/sim-agent/internal/container"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// Converter reads the PDF at pdfPath and returns its text. Backends that
// can limit work stop after maxPages pages; zero means no limit.
type Converter interface {
	Convert(ctx context.Context, pdfPath string, maxPages int) (string, error)
}

// Options bound the work done per PDF.
type Options struct {
	MaxPages int
	MaxChars int
}

// ExtractText runs c on pdfPath and returns at most opts.MaxChars bytes of
// text with whitespace runs collapsed. Failures are logged and yield "".
func ExtractText(ctx context.Context, c Converter, pdfPath string, opts Options, logger *zap.Logger) (text string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pdf conversion panicked", zap.String("path", pdfPath), zap.Any("panic", r))
			text = ""
		}
	}()

	raw, err := c.Convert(ctx, pdfPath, opts.MaxPages)
	if err != nil {
		logger.Debug("pdf conversion failed", zap.String("path", pdfPath), zap.Error(err))
		return ""
	}
	text = strings.Join(strings.Fields(raw), " ")
	if opts.MaxChars > 0 && len(text) > opts.MaxChars {
		text = text[:opts.MaxChars]
		text = strings.ToValidUTF8(text, "")
	}
	return text
}

// New returns the converter for the configured backend. The markitdown
// backend needs a working container runtime with the image present.
func New(ctx context.Context, cfg types.PDFConfig) (Converter, error) {
	switch cfg.Backend {
	case types.PDFBackendPDFCPU, "":
		return &PDFCPUConverter{}, nil
	case types.PDFBackendMarkitdown:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		return NewMarkitdownConverter(ctx, rt, cfg.MarkitdownImage)
	default:
		return nil, fmt.Errorf("unknown pdf backend %q (want %s or %s)", cfg.Backend, types.PDFBackendPDFCPU, types.PDFBackendMarkitdown)
	}
}
