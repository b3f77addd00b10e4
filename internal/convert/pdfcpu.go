// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUConverter extracts page text with the ledongthuc/pdf reader, which
// decodes strings through each font's encoding and ToUnicode map. Files the
// reader rejects are first rewritten by pdfcpu, which rebuilds broken
// cross-reference tables and accepts PDF 2.0 headers.
type PDFCPUConverter struct{}

func (PDFCPUConverter) Convert(ctx context.Context, pdfPath string, maxPages int) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}

	r, pages, err := openText(data)
	if err != nil {
		repaired, rerr := repair(data)
		if rerr != nil {
			return "", fmt.Errorf("reading PDF %s: %w", pdfPath, errors.Join(err, rerr))
		}
		if r, pages, err = openText(repaired); err != nil {
			return "", fmt.Errorf("reading repaired PDF %s: %w", pdfPath, err)
		}
	}
	if maxPages > 0 {
		pages = min(pages, maxPages)
	}

	var b strings.Builder
	for nr := 1; nr <= pages; nr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, _ := pageText(r, nr)
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// openText opens data for text extraction and counts its pages. The
// reader panics on some malformed files; that is reported as an error.
func openText(data []byte) (r *pdf.Reader, pages int, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, pages, err = nil, 0, fmt.Errorf("parsing PDF: %v", p)
		}
	}()
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}
	return r, r.NumPage(), nil
}

// repair rewrites data with pdfcpu as a PDF 1.7 file with a plain
// cross-reference table.
func repair(data []byte) ([]byte, error) {
	pctx, err := api.ReadContext(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return nil, err
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	if (pctx.RootVersion != nil || pctx.HeaderVersion != nil) && pctx.XRefTable.Version() == model.V20 {
		v := model.V17
		pctx.RootVersion = &v
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// relaxedConfig reads damaged files where possible and writes a classic
// cross-reference table.
func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}
