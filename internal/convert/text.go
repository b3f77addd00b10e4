// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// tjSpaceThreshold is the TJ displacement, in thousandths of an em, past
// which a gap between two strings is read as a word break.
const tjSpaceThreshold = -200

// pageText returns the text drawn on page nr by the Tj, TJ, ' and "
// operators. Strings are decoded through the encoding or ToUnicode map of
// the font selected by the last Tf. A malformed page stops the walk; the
// text read up to that point is returned with the error.
func pageText(r *pdf.Reader, nr int) (text string, err error) {
	w := &textWriter{fonts: map[string]pdf.TextEncoding{}}
	defer func() {
		if p := recover(); p != nil {
			text, err = w.String(), fmt.Errorf("reading page %d: %v", nr, p)
		}
	}()

	w.page = r.Page(nr)
	contents := w.page.V.Key("Contents")
	if contents.IsNull() {
		return "", nil
	}
	w.enc = pdf.Font{}.Encoder()
	pdf.Interpret(contents, w.op)
	return w.String(), nil
}

type textWriter struct {
	page  pdf.Page
	fonts map[string]pdf.TextEncoding
	enc   pdf.TextEncoding
	out   strings.Builder
}

func (w *textWriter) String() string { return w.out.String() }

// op handles one content stream operator. Operands are popped so the
// interpreter stack does not grow across operators.
func (w *textWriter) op(stk *pdf.Stack, op string) {
	args := make([]pdf.Value, stk.Len())
	for i := len(args) - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}

	switch op {
	case "Tf":
		if len(args) == 2 {
			w.enc = w.encoding(args[0].Name())
		}
	case "Tj":
		w.show(last(args))
	case "'", "\"":
		w.out.WriteByte('\n')
		w.show(last(args))
	case "TJ":
		arr := last(args)
		for i := 0; i < arr.Len(); i++ {
			el := arr.Index(i)
			switch el.Kind() {
			case pdf.String:
				w.show(el)
			case pdf.Integer, pdf.Real:
				if el.Float64() < tjSpaceThreshold {
					w.out.WriteByte(' ')
				}
			}
		}
	case "Td", "TD", "T*", "Tm":
		w.out.WriteByte(' ')
	case "ET":
		w.out.WriteByte('\n')
	}
}

func (w *textWriter) encoding(font string) pdf.TextEncoding {
	enc, ok := w.fonts[font]
	if !ok {
		enc = w.page.Font(font).Encoder()
		w.fonts[font] = enc
	}
	return enc
}

// show writes the decoded string, dropping control characters and bytes
// the font maps to nothing printable.
func (w *textWriter) show(v pdf.Value) {
	if v.Kind() != pdf.String {
		return
	}
	for _, r := range w.enc.Decode(v.RawString()) {
		switch {
		case r == '\n' || r == '\t':
			w.out.WriteRune(r)
		case r == unicode.ReplacementChar, unicode.IsControl(r):
		default:
			w.out.WriteRune(r)
		}
	}
}

func last(args []pdf.Value) pdf.Value {
	if len(args) == 0 {
		return pdf.Value{}
	}
	return args[len(args)-1]
}
