package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ======================= CONFIG =======================

const (
	defaultAddr         = ":8080"
	defaultUserAgent    = "PDFBinder/1.0 (+https://example.local)"
	defaultFetchTimeout = 60 * time.Second
	defaultMaxDocBytes  = 64 << 20
	defaultBlobTTL      = 10 * time.Minute
	defaultWidth        = 390
	defaultHeight       = 844
	maxViewportSide     = 10000
	maxConfigSize       = 1 << 20
	minBlobTTL          = time.Second

	defaultPDFJSSrc      = "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/2.11.338/pdf.min.js"
	defaultPDFJSWorker   = "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/2.11.338/pdf.worker.min.js"
	defaultSweetAlertSrc = "https://cdn.jsdelivr.net/npm/sweetalert2@11"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrConfigInvalid  = errors.New("invalid config")
)

// Config holds all service settings.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Render RenderConfig `yaml:"render"`
	Blob   BlobConfig   `yaml:"blob"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// FetchConfig controls how source documents are downloaded.
type FetchConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"user_agent"`
	MaxDocumentBytes int64         `yaml:"max_document_bytes"`
	AllowedHosts     []string      `yaml:"allowed_hosts"` // empty = any host
	AllowPrivate     bool          `yaml:"allow_private"` // permit loopback, private and link-local addresses
	FollowHTML       bool          `yaml:"follow_html"`   // resolve html landing pages to their pdf link
}

// RenderConfig controls the two render paths.
type RenderConfig struct {
	DefaultWidth   int    `yaml:"default_width"`
	DefaultHeight  int    `yaml:"default_height"`
	ForceDevice    string `yaml:"force_device"` // "", "mobile" or "desktop"
	PDFJSSrc       string `yaml:"pdfjs_src"`
	PDFJSWorkerSrc string `yaml:"pdfjs_worker_src"`
	SweetAlertSrc  string `yaml:"sweetalert_src"`
}

type BlobConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: defaultAddr},
		Fetch: FetchConfig{
			Timeout:          defaultFetchTimeout,
			UserAgent:        defaultUserAgent,
			MaxDocumentBytes: defaultMaxDocBytes,
			FollowHTML:       true,
		},
		Render: RenderConfig{
			DefaultWidth:   defaultWidth,
			DefaultHeight:  defaultHeight,
			PDFJSSrc:       defaultPDFJSSrc,
			PDFJSWorkerSrc: defaultPDFJSWorker,
			SweetAlertSrc:  defaultSweetAlertSrc,
		},
		Blob: BlobConfig{TTL: defaultBlobTTL},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. Unknown keys are
// rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, err
	}
	if len(data) > maxConfigSize {
		return cfg, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrConfigParse, path, len(data), maxConfigSize)
	}
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return fmt.Errorf("%w: server.addr is empty", ErrConfigInvalid)
	case c.Fetch.Timeout < 0:
		return fmt.Errorf("%w: fetch.timeout is negative", ErrConfigInvalid)
	case c.Fetch.MaxDocumentBytes <= 0:
		return fmt.Errorf("%w: fetch.max_document_bytes must be positive", ErrConfigInvalid)
	case c.Render.DefaultWidth <= 0 || c.Render.DefaultWidth > maxViewportSide:
		return fmt.Errorf("%w: render.default_width out of range", ErrConfigInvalid)
	case c.Render.DefaultHeight <= 0 || c.Render.DefaultHeight > maxViewportSide:
		return fmt.Errorf("%w: render.default_height out of range", ErrConfigInvalid)
	case c.Blob.TTL < minBlobTTL:
		return fmt.Errorf("%w: blob.ttl must be at least %s", ErrConfigInvalid, minBlobTTL)
	}
	switch c.Render.ForceDevice {
	case "", deviceMobile, deviceDesktop:
	default:
		return fmt.Errorf("%w: render.force_device must be %q or %q", ErrConfigInvalid, deviceMobile, deviceDesktop)
	}
	return nil
}
