package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed host document with a single placeholder node. The
// placeholder is replaced at most once.
type Page struct {
	doc      *goquery.Document
	selector string
	replaced bool
}

// NewPage parses html and checks that exactly one node matches selector.
func NewPage(r io.Reader, selector string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if n := doc.Find(selector).Length(); n != 1 {
		return nil, fmt.Errorf("%w: %q matched %d nodes", ErrPlaceholderMissing, selector, n)
	}
	return &Page{doc: doc, selector: selector}, nil
}

// newShellPage renders the host shell without the bootstrap script.
func newShellPage(cfg RenderConfig) (*Page, error) {
	var buf bytes.Buffer
	if err := shellTmpl.Execute(&buf, shellData{SweetAlertSrc: cfg.SweetAlertSrc}); err != nil {
		return nil, err
	}
	return NewPage(&buf, "#"+placeholderID)
}

// Replace swaps the placeholder for markup.
func (p *Page) Replace(markup template.HTML) error {
	if p.replaced {
		return ErrPlaceholderConsumed
	}
	p.doc.Find(p.selector).ReplaceWithHtml(string(markup))
	p.replaced = true
	return nil
}

func (p *Page) Replaced() bool { return p.replaced }

func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}
