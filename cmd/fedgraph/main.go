package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/fedgraph/internal/composition"
	"github.com/hanpama/fedgraph/internal/config"
	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/metrics"
	"github.com/hanpama/fedgraph/internal/otel"
	"github.com/hanpama/fedgraph/internal/reqid"
	"github.com/hanpama/fedgraph/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const rootUsage = `fedgraph: federated GraphQL resolvability checker

USAGE:
  fedgraph <command> [flags]

COMMANDS:
  check            Check that every field of a set of subgraphs is resolvable
  serve            Run the HTTP schema check API
  help             Show help for any command
`

const checkUsage = `check FLAGS:
  -config <file>           YAML configuration file
  -graphql.root <dir>      Directory of subgraph SDL files (default: .)
  -max-depth <n>           Maximum walked path depth (default: 128)
  -format <text|json>      Output format (default: text)
  -log.level <level>       Log level (default: info)
  -log.dev                 Human-readable development logging
  (Exits non-zero when a field is unresolvable)
`

const serveUsage = `serve FLAGS:
  -config <file>                  YAML configuration file
  -max-depth <n>                  Maximum walked path depth (default: 128)
  -server.addr <addr>             HTTP listen address (default: :8080)
  -server.pretty                  Pretty-print JSON responses
  -server.timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes <n>      Maximum request body size (default: 4194304)
  -otel.endpoint <addr>           OTLP collector endpoint
  -otel.service <name>            OpenTelemetry service name (default: fedgraph)
  -log.level <level>              Log level (default: info)
  -log.dev                        Human-readable development logging
`

var errUnresolvable = errors.New("composition has unresolvable fields")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "fedgraph:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("fedgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "check":
		return cmdCheck(ctx, cmdArgs, stdout, stderr)
	case "serve":
		return cmdServe(ctx, cmdArgs, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "check":
		fmt.Fprint(stdout, checkUsage)
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// commonFlags are shared by check and serve. Values set on the command line
// override the configuration file.
type commonFlags struct {
	configPath string
	maxDepth   int
	logLevel   string
	logDev     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML configuration file")
	fs.IntVar(&c.maxDepth, "max-depth", 0, "Maximum walked path depth")
	fs.StringVar(&c.logLevel, "log.level", "", "Log level")
	fs.BoolVar(&c.logDev, "log.dev", false, "Development logging")
}

// load reads the configuration and applies every flag in set.
func load(c *commonFlags, fs *flag.FlagSet, apply func(cfg *config.Config, name string)) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-depth":
			cfg.Validation.MaxDepth = c.maxDepth
		case "log.level":
			cfg.Log.Level = c.logLevel
		case "log.dev":
			cfg.Log.Development = c.logDev
		default:
			apply(&cfg, f.Name)
		}
	})
	return cfg, cfg.Validate()
}

func newLogger(cfg config.LogConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	var encoder zapcore.Encoder
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), level)), nil
}

func cmdCheck(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	rootDir := ""
	format := "text"
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	common.register(fs)
	fs.StringVar(&rootDir, "graphql.root", rootDir, "Directory of subgraph SDL files")
	fs.StringVar(&format, "format", format, "Output format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, checkUsage)
		return err
	}
	if format != "text" && format != "json" {
		fmt.Fprint(stderr, checkUsage)
		return fmt.Errorf("unknown format %q", format)
	}
	cfg, err := load(&common, fs, func(cfg *config.Config, name string) {
		if name == "graphql.root" {
			cfg.GraphQL.Root = rootDir
			cfg.Subgraphs = nil
		}
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	disc, err := cfg.Discovery(ctx)
	if err != nil {
		return fmt.Errorf("discover subgraphs: %w", err)
	}
	composer := composition.NewComposer(
		composition.WithLogger(logger),
		composition.WithMaxDepth(cfg.Validation.MaxDepth),
	)
	ctx, id := reqid.NewContext(ctx)
	result, err := composer.Compose(ctx, disc)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(server.NewCheckResponse(id, result)); err != nil {
			return err
		}
	default:
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "%s\n\n", e)
		}
		fmt.Fprintf(stdout, "%d subgraph(s) checked, %d error(s)\n", len(result.Subgraphs), len(result.Errors))
	}
	if !result.Success() {
		return errUnresolvable
	}
	return nil
}

func cmdServe(ctx context.Context, args []string, stderr io.Writer) error {
	var common commonFlags
	var (
		addr         string
		pretty       bool
		timeout      time.Duration
		maxBodyBytes int64
		otelEndpoint string
		otelService  string
	)
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	common.register(fs)
	fs.StringVar(&addr, "server.addr", "", "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", false, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", 0, "Per-request timeout")
	fs.Int64Var(&maxBodyBytes, "server.max-body-bytes", 0, "Maximum request body size")
	fs.StringVar(&otelEndpoint, "otel.endpoint", "", "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", "", "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	cfg, err := load(&common, fs, func(cfg *config.Config, name string) {
		switch name {
		case "server.addr":
			cfg.Server.Addr = addr
		case "server.pretty":
			cfg.Server.Pretty = pretty
		case "server.timeout":
			cfg.Server.Timeout = timeout
		case "server.max-body-bytes":
			cfg.Server.MaxBodyBytes = maxBodyBytes
		case "otel.endpoint":
			cfg.Otel.Endpoint = otelEndpoint
		case "otel.service":
			cfg.Otel.Service = otelService
		}
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventbus.Use(eventbus.New())
	shutdownTracing, err := otel.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	unsubscribe := metrics.New(reg).Subscribe()
	defer unsubscribe()

	composer := composition.NewComposer(
		composition.WithLogger(logger),
		composition.WithMaxDepth(cfg.Validation.MaxDepth),
	)
	sopts := []server.Option{
		server.WithLogger(logger),
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	h, err := server.New(composer, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("schema check server listening", zap.String("addr", cfg.Server.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
