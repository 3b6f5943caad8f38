// Command stitchgo generates crochet patterns from geodesic meshes.
//
// Usage:
//
//	stitchgo run  [-config file] [flags]             process the inbox until interrupted
//	stitchgo once [-config file] -in mesh.json -out pattern.json
//	stitchgo push [-config file] -in mesh.json [-id item]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/stitchgo"
	"github.com/hupe1980/stitchgo/artifact"
	"github.com/hupe1980/stitchgo/codec"
	"github.com/hupe1980/stitchgo/config"
	"github.com/hupe1980/stitchgo/driver"
	"github.com/hupe1980/stitchgo/mesh"
	promcollector "github.com/hupe1980/stitchgo/metrics/prometheus"
	"github.com/hupe1980/stitchgo/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "run":
		err = cmdRun(ctx, args[1:], stderr)
	case "once":
		err = cmdOnce(ctx, args[1:], stdout, stderr)
	case "push":
		err = cmdPush(ctx, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "stitchgo %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: stitchgo <run|once|push> [flags]")
}

// commonFlags override the configuration file.
type commonFlags struct {
	config      string
	yarnWidth   float64
	policy      string
	adjacency   string
	concurrency int
	codec       string
	store       string
	path        string
	logLevel    string
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.config, "config", "", "Path to YAML configuration file")
	fs.Float64Var(&f.yarnWidth, "yarn-width", 0, "Isoline spacing in field units")
	fs.StringVar(&f.policy, "policy", "", "Row membership policy (overlapping, disjoint)")
	fs.StringVar(&f.adjacency, "adjacency", "", "Row neighborhood (face, coincident)")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Rows solved in parallel")
	fs.StringVar(&f.codec, "codec", "", "Payload and artifact codec (json, go-json, msgpack)")
	fs.StringVar(&f.store, "store", "", "Blob store backend (memory, local, s3, minio)")
	fs.StringVar(&f.path, "path", "", "Root directory of the local store")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return f
}

// load reads the configuration file and applies the flags set on fs.
func (f *commonFlags) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "yarn-width":
			cfg.YarnWidth = f.yarnWidth
		case "policy":
			cfg.Policy = f.policy
		case "adjacency":
			cfg.Adjacency = f.adjacency
		case "concurrency":
			cfg.Concurrency = f.concurrency
		case "codec":
			cfg.Codec = f.codec
		case "store":
			cfg.Store.Backend = f.store
		case "path":
			cfg.Store.Path = f.path
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func cmdRun(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	poll := fs.Duration("poll-interval", 0, "Back-off between polls of an empty inbox")
	drain := fs.Bool("drain", false, "Exit once the inbox is empty")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}
	if *poll > 0 {
		cfg.PollInterval = *poll
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	logger := cfg.Logger()

	var metrics stitchgo.MetricsCollector = stitchgo.NoopMetricsCollector{}
	if cfg.Metrics.Addr != "" {
		reg := prom.NewRegistry()
		metrics = promcollector.NewCollector(reg)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promcollector.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	opts := append(cfg.GeneratorOptions(), stitchgo.WithLogger(logger), stitchgo.WithMetricsCollector(metrics))
	gen, err := stitchgo.New(opts...)
	if err != nil {
		return err
	}

	blobs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	n, closeNotifier, err := openNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	d, err := driver.New(gen,
		queue.NewBlobQueue(blobs, cfg.Store.Inbox),
		artifact.New(blobs, cfg.ArtifactOptions()...),
		l, n,
		driver.WithCodec(cfg.PayloadCodec()),
		driver.WithPollInterval(cfg.PollInterval),
		driver.WithLogger(logger),
		driver.WithMetricsCollector(metrics),
	)
	if err != nil {
		return err
	}

	logger.Info("starting stitchgo",
		"store", cfg.Store.Backend,
		"ledger", cfg.Ledger.Backend,
		"yarn_width", cfg.YarnWidth,
		"concurrency", cfg.Concurrency,
	)

	if *drain {
		processed, err := d.Drain(ctx)
		logger.Info("inbox drained", "items", processed)
		return err
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("stitchgo stopped")
	return nil
}

func cmdOnce(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("once", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	in := fs.String("in", "", "Mesh payload file")
	out := fs.String("out", "crochet_instructions.json", "Pattern output file")
	columns := fs.String("columns", "", "Optional file receiving the per-row column orders as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	var payload mesh.Payload
	if err := fileCodec(*in, cfg).Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", *in, err)
	}

	opts := append(cfg.GeneratorOptions(), stitchgo.WithLogger(cfg.Logger()))
	gen, err := stitchgo.New(opts...)
	if err != nil {
		return err
	}

	res, err := gen.GeneratePayload(ctx, &payload)
	if err != nil {
		return err
	}

	if err := writeFile(*out, fileCodec(*out, cfg), res.Pattern); err != nil {
		return err
	}
	if *columns != "" {
		if err := writeFile(*columns, codec.Default, res.Columns); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "rows=%d failed=%d degenerate=%d uncovered=%d stitches=%d\n",
		len(res.Columns), len(res.Failures), res.DegenerateVertices, res.Uncovered, len(res.Pattern.Stitches))
	for _, f := range res.Failures {
		fmt.Fprintf(stdout, "row %d: %v\n", f.Row, f.Err)
	}
	return nil
}

func cmdPush(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("push", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := registerCommon(fs)
	in := fs.String("in", "", "Mesh payload file")
	id := fs.String("id", "", "Item id (default: file name without extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	cfg, err := common.load(fs)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}

	base := filepath.Base(*in)
	if *id != "" {
		base = *id + filepath.Ext(base)
	}

	blobs, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if err := queue.NewBlobQueue(blobs, cfg.Store.Inbox).Push(ctx, queue.Item{Name: base, Data: data}); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "queued %s\n", strings.TrimSuffix(base, filepath.Ext(base)))
	return nil
}

// fileCodec picks the codec by file extension, falling back to the
// configured codec.
func fileCodec(name string, cfg *config.Config) codec.Codec {
	if c, ok := codec.ByExtension(strings.TrimPrefix(filepath.Ext(name), ".")); ok {
		return c
	}
	return cfg.PayloadCodec()
}

func writeFile(name string, c codec.Codec, v any) error {
	data, err := c.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
