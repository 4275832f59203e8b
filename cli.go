package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const usage = `Usage: pdf-binder <command> [flags]

Commands:
  serve      run the viewer (default)
  merge      bind documents into one PDF file
  encode     build a viewer fragment from document URLs
  decode     print the document URLs in a viewer fragment
  mcp        serve the binder as MCP tools over stdio
  version    print the version
`

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	verbose bool

	timeout      time.Duration
	userAgent    string
	hosts        []string
	allowPrivate bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVarP(&c.config, "config", "c", "", "YAML config file")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "development logging")
	fs.DurationVar(&c.timeout, "timeout", defaultFetchTimeout, "per-document download timeout")
	fs.StringVar(&c.userAgent, "user-agent", defaultUserAgent, "User-Agent sent when downloading documents")
	fs.StringSliceVar(&c.hosts, "allow-host", nil, "only download from these hosts (repeatable)")
	fs.BoolVar(&c.allowPrivate, "allow-private", false, "allow downloads from loopback, private and link-local addresses")
	return c
}

// resolveConfig loads the config file, then applies flags the user set.
func (c *commonFlags) resolveConfig(fs *flag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	if c.config != "" {
		var err error
		if cfg, err = LoadConfig(c.config); err != nil {
			return cfg, err
		}
	}
	if fs.Changed("verbose") {
		cfg.Log.Development = c.verbose
	}
	if fs.Changed("timeout") {
		cfg.Fetch.Timeout = c.timeout
	}
	if fs.Changed("user-agent") {
		cfg.Fetch.UserAgent = c.userAgent
	}
	if fs.Changed("allow-host") {
		cfg.Fetch.AllowedHosts = c.hosts
	}
	if fs.Changed("allow-private") {
		cfg.Fetch.AllowPrivate = c.allowPrivate
	}
	return cfg, cfg.Validate()
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// run dispatches the subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, stderr)
	case "merge":
		err = runMerge(args, stdout, stderr)
	case "encode":
		err = runEncode(args, stdout, stderr)
	case "decode":
		err = runDecode(args, stdout, stderr)
	case "mcp":
		err = runMCP(args, stderr)
	case "version":
		fmt.Fprintln(stdout, Version)
	case "help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// ---- serve ----

func runServe(args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	common := addCommonFlags(fs)
	addr := fs.String("addr", defaultAddr, "http listen address (e.g. :8080)")
	device := fs.String("device", "", "force the render path: mobile or desktop")
	ttl := fs.Duration("blob-ttl", defaultBlobTTL, "how long a merged document stays downloadable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolveConfig(fs)
	if err != nil {
		return err
	}
	if fs.Changed("addr") {
		cfg.Server.Addr = *addr
	}
	if fs.Changed("device") {
		cfg.Render.ForceDevice = *device
	}
	if fs.Changed("blob-ttl") {
		cfg.Blob.TTL = *ttl
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Infof))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs := NewBlobStore(cfg.Blob.TTL)
	go blobs.Janitor(ctx, cfg.Blob.TTL/2)

	orch := NewOrchestrator(NewFetcher(cfg.Fetch, nil, log), blobs, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newServer(cfg, orch, blobs, log).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("viewer listening", zap.String("addr", cfg.Server.Addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ---- merge ----

func runMerge(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("merge", stderr)
	common := addCommonFlags(fs)
	out := fs.StringP("out", "o", "merged.pdf", "output PDF path")
	fragment := fs.StringP("fragment", "f", "", "viewer fragment instead of URL arguments")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolveConfig(fs)
	if err != nil {
		return err
	}
	urls, err := requestURLs(*fragment, fs.Args())
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	orch := NewOrchestrator(NewFetcher(cfg.Fetch, nil, log), nil, log)
	c, err := orch.Bind(context.Background(), urls)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, c.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d pages\n", *out, c.Pages)
	for _, s := range c.Spans {
		fmt.Fprintf(stdout, "  %4d-%-4d %s\n", s.First, s.First+s.Pages-1, s.URL)
	}
	return nil
}

// ---- encode / decode ----

func runEncode(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("encode", stderr)
	base := fs.String("base", "", "viewer base URL to prefix (e.g. https://viewer.example/)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("encode: at least one URL required")
	}
	frag := Encode(fs.Args())
	if *base != "" {
		frag = strings.TrimSuffix(*base, "#") + "#" + frag
	}
	fmt.Fprintln(stdout, frag)
	return nil
}

func runDecode(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("decode", stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("decode: exactly one fragment required")
	}
	frag := fs.Arg(0)
	if i := strings.IndexByte(frag, '#'); i >= 0 {
		frag = frag[i:]
	}
	urls, err := Resolve(frag)
	if err != nil {
		return err
	}
	for _, u := range urls {
		fmt.Fprintln(stdout, u)
	}
	return nil
}

// ---- mcp ----

func runMCP(args []string, stderr io.Writer) error {
	fs := newFlagSet("mcp", stderr)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.resolveConfig(fs)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	orch := NewOrchestrator(NewFetcher(cfg.Fetch, nil, log), nil, log)
	log.Info("serving MCP tools over stdio")
	return mcpserver.ServeStdio(NewMCPServer(orch))
}
