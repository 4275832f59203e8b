package main

// ======================= DATA TYPES ===================

// URLList is the ordered list of document URLs carried by a fragment.
// Order decides page order in the composite; duplicates are allowed.
type URLList []string

// Document is one fetched and parsed source document.
type Document struct {
	Index int    // position in the URLList
	URL   string // as requested
	Data  []byte // raw PDF bytes
	Pages int
}

// PageSpan records where one source document landed in the composite.
type PageSpan struct {
	URL   string `json:"url"`
	First int    `json:"first"` // 1-based composite page number
	Pages int    `json:"pages"`
}

// Composite is the merged output of one run.
type Composite struct {
	Data  []byte
	Pages int
	Spans []PageSpan
	Src   string // local URL the renderer points at; empty until stored
}

// Source maps a 1-based composite page number to the source document index
// and its 1-based page number.
func (c *Composite) Source(page int) (doc, docPage int, ok bool) {
	if page < 1 || page > c.Pages {
		return 0, 0, false
	}
	for i, s := range c.Spans {
		if page < s.First+s.Pages {
			return i, page - s.First + 1, true
		}
	}
	return 0, 0, false
}

// Viewport is the client area a renderer fits pages into, in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// PageBox is the natural size of one page, in PDF user space units.
type PageBox struct {
	Width  float64
	Height float64
}
