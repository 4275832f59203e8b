package main

import (
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"
)

// Orchestrator runs the fetch -> parse -> merge -> render pipeline for one
// request. It holds no per-request state.
type Orchestrator struct {
	fetcher DocumentFetcher
	parse   func([]byte) (int, error)
	blobs   *BlobStore
	log     *zap.Logger
}

func NewOrchestrator(fetcher DocumentFetcher, blobs *BlobStore, log *zap.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, parse: parseDocument, blobs: blobs, log: log}
}

// RenderResult is the outcome of Run. Exactly one of Markup (success) or Err
// (failure) is meaningful; on failure Markup holds the fallback UI.
type RenderResult struct {
	Composite *Composite
	Markup    template.HTML
	Err       error
}

func (r RenderResult) Failed() bool { return r.Err != nil }

// Apply replaces the page's placeholder with the result.
func (r RenderResult) Apply(p *Page) error {
	return p.Replace(r.Markup)
}

// Bind fetches and parses every document in order, then merges them. The
// next fetch starts only after the previous document parsed. The first
// failure aborts; the returned error is a *StageError.
func (o *Orchestrator) Bind(ctx context.Context, urls URLList) (*Composite, error) {
	if len(urls) == 0 {
		return nil, stageErr(StageMerge, -1, "", ErrNoDocuments)
	}

	// Stage A: sequential fetch + parse
	docs := make([]Document, 0, len(urls))
	for i, u := range urls {
		data, err := o.fetcher.Fetch(ctx, u)
		if err != nil {
			return nil, stageErr(StageFetch, i, u, err)
		}
		pages, err := o.parse(data)
		if err != nil {
			return nil, stageErr(StageParse, i, u, err)
		}
		o.log.Debug("document loaded",
			zap.Int("index", i), zap.String("url", u), zap.Int("pages", pages), zap.Int("bytes", len(data)))
		docs = append(docs, Document{Index: i, URL: u, Data: data, Pages: pages})
	}

	// Stage B: merge in input order
	merged, err := mergeDocuments(docs)
	if err != nil {
		return nil, stageErr(StageMerge, -1, "", err)
	}

	// Stage C: serialized composite; its page count must add up
	c := &Composite{Data: merged, Spans: make([]PageSpan, len(docs))}
	want := 0
	for i, d := range docs {
		c.Spans[i] = PageSpan{URL: d.URL, First: want + 1, Pages: d.Pages}
		want += d.Pages
	}
	got, err := pageCount(merged)
	if err != nil {
		return nil, stageErr(StageMerge, -1, "", err)
	}
	if got != want {
		return nil, stageErr(StageMerge, -1, "", fmt.Errorf("%w: got %d, want %d", ErrPageCountMismatch, got, want))
	}
	c.Pages = got
	return c, nil
}

// Run binds urls, stores the composite and renders it with r. It never
// returns an error: failures come back as the fallback markup with Err set.
func (o *Orchestrator) Run(ctx context.Context, urls URLList, r Renderer, vp Viewport) RenderResult {
	c, err := o.Bind(ctx, urls)
	if err != nil {
		return o.fail(err)
	}

	// Stage D: render dispatch
	c.Src = o.blobs.Put(c.Data)
	markup, err := r.Render(ctx, c, vp)
	if err != nil {
		o.blobs.Delete(c.Src)
		return o.fail(stageErr(StageRender, -1, "", err))
	}
	o.log.Info("composite rendered",
		zap.Int("documents", len(urls)), zap.Int("pages", c.Pages), zap.String("blob", c.Src))
	return RenderResult{Composite: c, Markup: markup}
}

func (o *Orchestrator) fail(err error) RenderResult {
	stage, _ := StageOf(err)
	o.log.Error("document pipeline failed", zap.Stringer("stage", stage), zap.Error(err))
	return RenderResult{Markup: fallbackMarkup(), Err: err}
}
