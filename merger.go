package main

import (
	"bytes"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// keep pdfcpu from creating a config dir under the user's home
	pdfapi.DisableConfigDir()
}

// pdfConfig returns a fresh configuration; pdfcpu mutates it per command.
func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// parseDocument loads and validates one PDF and returns its page count.
func parseDocument(data []byte) (int, error) {
	ctx, err := pdfapi.ReadContext(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return 0, err
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return 0, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// mergeDocuments concatenates all pages of docs, in order, into a new PDF.
func mergeDocuments(docs []Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	rsc := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		rsc[i] = bytes.NewReader(d.Data)
	}
	var out bytes.Buffer
	conf := pdfConfig()
	conf.CreateBookmarks = false
	if err := pdfapi.MergeRaw(rsc, &out, false, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// pageCount counts the pages of a serialized PDF.
func pageCount(data []byte) (int, error) {
	return pdfapi.PageCount(bytes.NewReader(data), pdfConfig())
}

// pageBoxes returns the displayed size of every page, in page order: the
// CropBox (MediaBox when absent) with /Rotate applied.
func pageBoxes(data []byte) ([]PageBox, error) {
	ctx, err := pdfapi.ReadAndValidate(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}
	pbs, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, err
	}
	boxes := make([]PageBox, len(pbs))
	for i, pb := range pbs {
		r := pb.CropBox()
		if r == nil {
			return nil, fmt.Errorf("%w: page %d has no box", ErrEmptyPage, i+1)
		}
		w, h := r.Width(), r.Height()
		if pb.Rot%180 != 0 {
			w, h = h, w
		}
		boxes[i] = PageBox{Width: w, Height: h}
	}
	return boxes, nil
}
