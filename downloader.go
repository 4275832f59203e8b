package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DocumentFetcher downloads the raw bytes behind one document URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, u string) ([]byte, error)
}

// Fetcher is the HTTP DocumentFetcher.
//   - The body is returned as-is unless it is an HTML page.
//   - An HTML page is parsed for a .pdf / "Download" link which is fetched once.
//   - Every URL, redirect targets included, passes checkURL.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBytes     int64
	hosts        map[string]struct{}
	allowPrivate bool
	followHTML   bool
	log          *zap.Logger
}

const maxRedirects = 10

// NewFetcher builds a Fetcher. A nil client gets a default one whose dialer
// also refuses private addresses unless cfg.AllowPrivate is set. The client
// is copied; its redirect policy is replaced.
func NewFetcher(cfg FetchConfig, client *http.Client, log *zap.Logger) *Fetcher {
	if client == nil {
		client = defaultClient(cfg)
	}
	var hosts map[string]struct{}
	if len(cfg.AllowedHosts) > 0 {
		hosts = make(map[string]struct{}, len(cfg.AllowedHosts))
		for _, h := range cfg.AllowedHosts {
			hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
		}
	}
	f := &Fetcher{
		userAgent:    cfg.UserAgent,
		maxBytes:     cfg.MaxDocumentBytes,
		hosts:        hosts,
		allowPrivate: cfg.AllowPrivate,
		followHTML:   cfg.FollowHTML,
		log:          log,
	}
	c := *client
	c.CheckRedirect = f.checkRedirect
	f.client = &c
	return f
}

func defaultClient(cfg FetchConfig) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.AllowPrivate {
		d := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Control: dialControl}
		tr.DialContext = d.DialContext
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: tr}
}

// dialControl rejects connections to private addresses after DNS resolution.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
	}
	return nil
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return f.checkURL(req.URL.String())
}

func (f *Fetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	return f.fetch(ctx, u, 0)
}

func (f *Fetcher) fetch(ctx context.Context, u string, hop int) ([]byte, error) {
	if err := f.checkURL(u); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !f.followHTML || !strings.Contains(ct, "text/html") {
		return body, nil
	}

	// HTML -> look for the document link
	if hop > 0 {
		return nil, fmt.Errorf("%w: %s", ErrTooManyHTMLHops, u)
	}
	link := findPDFLinkInHTML(bytes.NewReader(body), resp.Request.URL.String())
	if link == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoPDFLink, u)
	}
	f.log.Debug("following document link", zap.String("page", u), zap.String("url", link))
	return f.fetch(ctx, link, hop+1)
}

func (f *Fetcher) checkURL(u string) error {
	pu, err := url.Parse(u)
	if err != nil {
		return err
	}
	switch strings.ToLower(pu.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, pu.Scheme)
	}
	host := strings.ToLower(pu.Hostname())
	if !f.allowPrivate && isPrivateHost(host) {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}
	if f.hosts == nil {
		return nil
	}
	if _, ok := f.hosts[host]; !ok {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
	}
	return nil
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && isPrivateIP(ip)
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func (f *Fetcher) readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, f.maxBytes)
	}
	return body, nil
}

// findPDFLinkInHTML looks for <a href="...pdf"> or an anchor whose text says
// "download"/"pdf". Direct .pdf links win.
func findPDFLinkInHTML(r io.Reader, base string) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	var candidates []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		txt := strings.ToLower(strings.TrimSpace(a.Text()))
		abs := mustAbsURL(base, href)
		l := strings.ToLower(abs)
		switch {
		case strings.HasSuffix(l, ".pdf"):
			candidates = append(candidates, abs)
		case strings.Contains(txt, "download") || strings.Contains(txt, "pdf"):
			candidates = append(candidates, abs)
		}
	})

	for _, c := range candidates {
		if strings.HasSuffix(strings.ToLower(c), ".pdf") {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func mustAbsURL(baseStr, href string) string {
	bu, err := url.Parse(baseStr)
	if err != nil {
		return href
	}
	hu, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(hu).String()
}
