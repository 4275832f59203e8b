package main

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"

	"github.com/mileusna/useragent"
)

const (
	deviceMobile  = "mobile"
	deviceDesktop = "desktop"
)

// Renderer turns a stored composite into the markup that replaces the
// placeholder.
type Renderer interface {
	Render(ctx context.Context, c *Composite, vp Viewport) (template.HTML, error)
}

// EmbedRenderer hands the composite to the browser's native viewer.
type EmbedRenderer struct{}

func (EmbedRenderer) Render(_ context.Context, c *Composite, _ Viewport) (template.HTML, error) {
	if c.Src == "" {
		return "", ErrNoLocalURL
	}
	return execFragment(embedTmpl, struct{ Src string }{c.Src})
}

// CanvasRenderer lays out one canvas per page, each scaled to fit the
// viewport, and lets pdf.js rasterize into them on the client.
type CanvasRenderer struct {
	PDFJSSrc  string
	WorkerSrc string
}

// CanvasPage is one canvas of the mobile layout.
type CanvasPage struct {
	Number int
	Width  int
	Height int
}

func (r CanvasRenderer) Render(_ context.Context, c *Composite, vp Viewport) (template.HTML, error) {
	if c.Src == "" {
		return "", ErrNoLocalURL
	}
	boxes, err := pageBoxes(c.Data)
	if err != nil {
		return "", err
	}
	pages, err := layoutCanvases(boxes, vp)
	if err != nil {
		return "", err
	}
	return execFragment(canvasTmpl, struct {
		Src       string
		PDFJSSrc  string
		WorkerSrc string
		Pages     []CanvasPage
	}{c.Src, r.PDFJSSrc, r.WorkerSrc, pages})
}

// layoutCanvases sizes every page with scale = min(vw/pw, vh/ph), so each
// page fits both dimensions with its aspect ratio kept.
func layoutCanvases(boxes []PageBox, vp Viewport) ([]CanvasPage, error) {
	pages := make([]CanvasPage, len(boxes))
	for i, b := range boxes {
		if b.Width <= 0 || b.Height <= 0 {
			return nil, fmt.Errorf("%w: page %d is %gx%g", ErrEmptyPage, i+1, b.Width, b.Height)
		}
		s := fitScale(b, vp)
		pages[i] = CanvasPage{
			Number: i + 1,
			Width:  floorPx(b.Width * s),
			Height: floorPx(b.Height * s),
		}
	}
	return pages, nil
}

// floorPx truncates like a canvas size assignment, ignoring float noise
// just below a whole pixel.
func floorPx(v float64) int {
	return int(math.Floor(v + 1e-9))
}

func fitScale(b PageBox, vp Viewport) float64 {
	return math.Min(float64(vp.Width)/b.Width, float64(vp.Height)/b.Height)
}

// IsMobile is the device-class predicate: phones and tablets are mobile.
func IsMobile(userAgent string) bool {
	ua := useragent.Parse(userAgent)
	return ua.Mobile || ua.Tablet
}

// SelectRenderer picks the render path once per request. force ("mobile" or
// "desktop") wins over the user agent.
func SelectRenderer(cfg RenderConfig, userAgent, force string) Renderer {
	if force == "" {
		force = cfg.ForceDevice
	}
	mobile := IsMobile(userAgent)
	switch force {
	case deviceMobile:
		mobile = true
	case deviceDesktop:
		mobile = false
	}
	if mobile {
		return CanvasRenderer{PDFJSSrc: cfg.PDFJSSrc, WorkerSrc: cfg.PDFJSWorkerSrc}
	}
	return EmbedRenderer{}
}

// viewportFromQuery reads the client area from w/h, falling back to the
// configured defaults and clamping to a sane range.
func viewportFromQuery(q url.Values, cfg RenderConfig) Viewport {
	return Viewport{
		Width:  clampSide(q.Get("w"), cfg.DefaultWidth),
		Height: clampSide(q.Get("h"), cfg.DefaultHeight),
	}
}

func clampSide(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxViewportSide)
}

func execFragment(t *template.Template, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
