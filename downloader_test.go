package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFetchConfig() FetchConfig {
	cfg := DefaultConfig().Fetch
	cfg.MaxDocumentBytes = 1 << 20
	cfg.AllowPrivate = true
	return cfg
}

func newDocServer(t *testing.T, pdf []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.UserAgent())
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pdf)
	})
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<a href="/about">About</a>
			<a href="/get?id=7">Download</a>
			<a href="doc.pdf">Worksheet</a>
		</body></html>`))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="/landing">Download PDF</a>`))
	})
	mux.HandleFunc("/nolink", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<p>nothing here</p>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcherFetch(t *testing.T) {
	pdf := makePDF(t, sizesA...)
	srv := newDocServer(t, pdf)
	f := NewFetcher(testFetchConfig(), srv.Client(), zap.NewNop())

	for _, path := range []string{"/doc.pdf", "/plain", "/landing"} {
		t.Run(path, func(t *testing.T) {
			got, err := f.Fetch(context.Background(), srv.URL+path)
			require.NoError(t, err)
			assert.Equal(t, pdf, got)
		})
	}
}

func TestFetcherErrors(t *testing.T) {
	srv := newDocServer(t, makePDF(t, sizesA...))

	tests := []struct {
		name string
		cfg  func(*FetchConfig)
		url  string
		want error
	}{
		{"http status", nil, srv.URL + "/missing.pdf", ErrHTTPStatus},
		{"scheme", nil, "file:///etc/passwd", ErrUnsupportedScheme},
		{"host", func(c *FetchConfig) { c.AllowedHosts = []string{"docs.example"} }, srv.URL + "/doc.pdf", ErrHostNotAllowed},
		{"size", func(c *FetchConfig) { c.MaxDocumentBytes = 16 }, srv.URL + "/doc.pdf", ErrDocumentTooLarge},
		{"html without link", nil, srv.URL + "/nolink", ErrNoPDFLink},
		{"html twice", nil, srv.URL + "/loop", ErrTooManyHTMLHops},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testFetchConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			_, err := NewFetcher(cfg, srv.Client(), zap.NewNop()).Fetch(context.Background(), tt.url)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetcherRedirectsPassHostCheck(t *testing.T) {
	pdf := makePDF(t, sizesA...)
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/secret", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("SECRET")) })
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(pdf) })
	mux.HandleFunc("/same-host", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/doc.pdf", http.StatusFound)
	})
	mux.HandleFunc("/other-host", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, strings.Replace(srvURL, "127.0.0.1", "localhost", 1)+"/secret", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	cfg := testFetchConfig()
	cfg.AllowedHosts = []string{"127.0.0.1"}
	f := NewFetcher(cfg, srv.Client(), zap.NewNop())

	got, err := f.Fetch(context.Background(), srv.URL+"/same-host")
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	got, err = f.Fetch(context.Background(), srv.URL+"/other-host")
	assert.ErrorIs(t, err, ErrHostNotAllowed)
	assert.Nil(t, got)
}

func TestFetcherRejectsPrivateAddresses(t *testing.T) {
	srv := newDocServer(t, makePDF(t, sizesA...))
	cfg := testFetchConfig()
	cfg.AllowPrivate = false
	f := NewFetcher(cfg, nil, zap.NewNop())

	for _, u := range []string{
		srv.URL + "/doc.pdf",
		"http://localhost/doc.pdf",
		"http://10.0.0.8/doc.pdf",
		"http://169.254.169.254/latest/meta-data",
		"http://[::1]/doc.pdf",
	} {
		_, err := f.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, ErrPrivateAddress, u)
	}
}

func TestDialControlRejectsPrivateIPs(t *testing.T) {
	assert.ErrorIs(t, dialControl("tcp", "127.0.0.1:80", nil), ErrPrivateAddress)
	assert.ErrorIs(t, dialControl("tcp", "[fe80::1]:443", nil), ErrPrivateAddress)
	assert.NoError(t, dialControl("tcp", "93.184.216.34:443", nil))
}

func TestFetcherHTMLPassthrough(t *testing.T) {
	srv := newDocServer(t, nil)
	cfg := testFetchConfig()
	cfg.FollowHTML = false

	got, err := NewFetcher(cfg, srv.Client(), zap.NewNop()).Fetch(context.Background(), srv.URL+"/nolink")
	require.NoError(t, err)
	assert.Contains(t, string(got), "nothing here")
}

func TestFindPDFLinkInHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"prefers .pdf", `<a href="/dl">Download</a><a href="files/w.PDF">w</a>`, "https://site.example/a/files/w.PDF"},
		{"download text", `<a href="/get/9">Download now</a>`, "https://site.example/get/9"},
		{"absolute link", `<a href="https://cdn.example/x.pdf">x</a>`, "https://cdn.example/x.pdf"},
		{"nothing", `<a href="/about">About</a>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findPDFLinkInHTML(strings.NewReader(tt.html), "https://site.example/a/page")
			assert.Equal(t, tt.want, got)
		})
	}
}
