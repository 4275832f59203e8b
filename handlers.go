package main

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

type server struct {
	cfg   Config
	orch  *Orchestrator
	blobs *BlobStore
	log   *zap.Logger
}

func newServer(cfg Config, orch *Orchestrator, blobs *BlobStore, log *zap.Logger) *server {
	return &server{cfg: cfg, orch: orch, blobs: blobs, log: log}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /view", s.handleView)
	mux.HandleFunc("GET /blob/{id}", s.handleBlob)
	mux.HandleFunc("GET /404.html", handleNotFound)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// handleIndex serves the shell whose script forwards the fragment to /view.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := shellTmpl.Execute(&buf, shellData{SweetAlertSrc: s.cfg.Render.SweetAlertSrc, Bootstrap: true}); err != nil {
		s.log.Error("render shell", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

// handleView resolves ?r=, runs the pipeline and answers the shell with its
// placeholder replaced by either the document or the fallback UI.
func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	urls, err := Resolve(q.Get("r"))
	if err != nil {
		s.log.Info("invalid document request", zap.Error(err))
		http.Redirect(w, r, "/404.html", http.StatusSeeOther)
		return
	}

	page, err := newShellPage(s.cfg.Render)
	if err != nil {
		s.log.Error("render shell", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	renderer := SelectRenderer(s.cfg.Render, r.UserAgent(), q.Get("device"))
	res := s.orch.Run(r.Context(), urls, renderer, viewportFromQuery(q, s.cfg.Render))
	if err := res.Apply(page); err != nil {
		s.log.Error("replace placeholder", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out, err := page.HTML()
	if err != nil {
		s.log.Error("serialize page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeHTML(w, []byte(out))
}

func (s *server) handleBlob(w http.ResponseWriter, r *http.Request) {
	data, ok := s.blobs.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write(data)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(notFoundPage)
}

func writeHTML(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}
