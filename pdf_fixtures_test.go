package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type pageSize struct{ w, h int }

// pageDef is one fixture page: its MediaBox plus extra page dictionary
// entries such as "/CropBox [...]" or "/Rotate 90".
type pageDef struct {
	size  pageSize
	extra string
}

// makePDF writes a minimal PDF with one blank page per size. Pages are told
// apart by their MediaBox.
func makePDF(t testing.TB, sizes ...pageSize) []byte {
	t.Helper()
	defs := make([]pageDef, len(sizes))
	for i, s := range sizes {
		defs[i] = pageDef{size: s}
	}
	return makePDFPages(t, defs...)
}

func makePDFPages(t testing.TB, pages ...pageDef) []byte {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	obj := func(num int, body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	for i, p := range pages {
		obj(i+3, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] %s/Resources << >> >>", p.size.w, p.size.h, p.extra))
	}

	xref := buf.Len()
	n := len(offsets) + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", n)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n, xref)
	return buf.Bytes()
}

// fakeFetcher serves documents from memory and records the call order.
type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string][]byte
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, u)
	if err, ok := f.errs[u]; ok {
		return nil, err
	}
	if b, ok := f.docs[u]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: 404", ErrHTTPStatus)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var (
	sizesA = []pageSize{{100, 200}, {101, 201}}
	sizesB = []pageSize{{300, 400}, {301, 401}, {302, 402}}
)

// abFetcher serves a.pdf (2 pages) and b.pdf (3 pages).
func abFetcher(t testing.TB) *fakeFetcher {
	return &fakeFetcher{docs: map[string][]byte{
		"https://host/a.pdf": makePDF(t, sizesA...),
		"https://host/b.pdf": makePDF(t, sizesB...),
	}}
}
