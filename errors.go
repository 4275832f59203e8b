package main

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// Request decoding errors. Both mean "invalid request": no fetch happens.
	ErrEmptyRequest     = errors.New("empty document request")
	ErrMalformedRequest = errors.New("malformed document request")

	// Fetch errors.
	ErrHTTPStatus        = errors.New("unexpected http status")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrHostNotAllowed    = errors.New("host not allowed")
	ErrPrivateAddress    = errors.New("private address not allowed")
	ErrDocumentTooLarge  = errors.New("document exceeds size limit")
	ErrNoPDFLink         = errors.New("no pdf link found in html page")
	ErrTooManyHTMLHops   = errors.New("html page did not lead to a document")

	// Pipeline errors.
	ErrNoDocuments       = errors.New("no documents to merge")
	ErrPageCountMismatch = errors.New("composite page count mismatch")
	ErrEmptyPage         = errors.New("page has no area")
	ErrNoLocalURL        = errors.New("composite has no local url")

	// Presentation errors.
	ErrPlaceholderMissing  = errors.New("placeholder not found")
	ErrPlaceholderConsumed = errors.New("placeholder already replaced")
)

// IsInvalidRequest reports whether err came from decoding the request itself.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrEmptyRequest) || errors.Is(err, ErrMalformedRequest)
}

// Stage identifies the pipeline step that failed.
type Stage int

const (
	StageFetch Stage = iota + 1
	StageParse
	StageMerge
	StageRender
)

func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "fetch"
	case StageParse:
		return "parse"
	case StageMerge:
		return "merge"
	case StageRender:
		return "render"
	default:
		return "unknown"
	}
}

// StageError tags a pipeline failure with the stage and, for per-document
// stages, the document it concerns.
type StageError struct {
	Stage Stage
	Index int // document index, -1 when not document specific
	URL   string
	Err   error
}

func (e *StageError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s document %d (%s): %v", e.Stage, e.Index+1, e.URL, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage tag carried by err, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}

func stageErr(stage Stage, doc int, url string, err error) error {
	return &StageError{Stage: stage, Index: doc, URL: url, Err: err}
}
