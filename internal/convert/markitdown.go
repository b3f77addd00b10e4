// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/pdiddy/sim-agent/internal/container"
)

const defaultMarkitdownImage = "markitdown:latest"

// MarkitdownConverter runs a markitdown container over the PDF and returns
// its Markdown output.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownConverter returns a converter for image, which must already
// be present in rt. An empty image selects markitdown:latest.
func NewMarkitdownConverter(ctx context.Context, rt container.Runtime, image string) (*MarkitdownConverter, error) {
	if image == "" {
		image = defaultMarkitdownImage
	}
	if err := rt.ImageExists(ctx, image); err != nil {
		return nil, fmt.Errorf("pdf backend markitdown: image %s not found in %s (set pdf.markitdown_image or pull it): %w", image, rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image}, nil
}

// Convert sends the first maxPages pages of the PDF to the container.
// The whole file is sent when pdfcpu cannot cut it down.
func (m *MarkitdownConverter) Convert(ctx context.Context, pdfPath string, maxPages int) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, bytes.NewReader(firstPages(data, maxPages)), &out); err != nil {
		return "", fmt.Errorf("markitdown on %s: %w", filepath.Base(pdfPath), err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("markitdown returned no text for %s", filepath.Base(pdfPath))
	}
	return text, nil
}

// firstPages returns data cut to its first n pages. Documents that already
// fit, and documents pdfcpu cannot read or trim, are returned unchanged.
func firstPages(data []byte, n int) []byte {
	if n <= 0 {
		return data
	}
	pctx, err := api.ReadContext(bytes.NewReader(data), relaxedConfig())
	if err != nil || pctx.EnsurePageCount() != nil || pctx.PageCount <= n {
		return data
	}

	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &buf, []string{fmt.Sprintf("1-%d", n)}, relaxedConfig()); err != nil {
		return data
	}
	return buf.Bytes()
}
