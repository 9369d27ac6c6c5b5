// Package composition merges ingested subgraphs into a resolvability graph and
// checks that every field reachable from a root field can be resolved.
package composition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	eventbus "github.com/hanpama/fedgraph/internal/eventbus"
	events "github.com/hanpama/fedgraph/internal/events"
	resolvability "github.com/hanpama/fedgraph/internal/resolvability"
	subgraph "github.com/hanpama/fedgraph/internal/subgraph"
	"go.uber.org/zap"
)

type Options struct {
	Logger   *zap.Logger
	MaxDepth int
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }
func WithMaxDepth(n int) Option       { return func(o *Options) { o.MaxDepth = n } }

type Composer struct {
	opt Options
}

func NewComposer(opts ...Option) *Composer {
	op := Options{Logger: zap.NewNop(), MaxDepth: resolvability.DefaultMaxDepth}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	return &Composer{opt: op}
}

// Result is the outcome of a composition. Errors holds every resolvability
// error in deterministic order; it is empty when the graph is satisfiable.
type Result struct {
	Subgraphs []*subgraph.Subgraph
	Errors    []error
}

func (r *Result) Success() bool { return len(r.Errors) == 0 }

// Err returns the resolvability errors as an Error, or nil.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return Error(r.Errors)
}

// Error aggregates the resolvability errors of one composition.
type Error []error

func (e Error) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n\n")
}

func (e Error) Unwrap() []error { return e }

// Compose reads every subgraph from disc and checks the resulting graph.
// Discovery, parse and ingestion failures are returned as err; resolvability
// failures are reported in the Result.
func (c *Composer) Compose(ctx context.Context, disc subgraph.Discovery) (*Result, error) {
	metas, err := disc.ListMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subgraphs: %w", err)
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("no subgraphs found")
	}
	subgraphs := make([]*subgraph.Subgraph, 0, len(metas))
	for _, meta := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sdl, err := disc.ReadSDL(ctx, meta.Name)
		if err != nil {
			return nil, err
		}
		sg, err := subgraph.Ingest(meta, sdl)
		var verr subgraph.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("subgraph %q: %w", meta.Name, err)
		}
		if err != nil {
			return nil, err
		}
		c.opt.Logger.Debug("subgraph ingested",
			zap.String("subgraph", sg.Name),
			zap.String("file", sg.FilePath),
			zap.Int("types", len(sg.Types)))
		subgraphs = append(subgraphs, sg)
	}
	return c.ComposeSubgraphs(ctx, subgraphs), nil
}

// ComposeSubgraphs checks already ingested subgraphs. Subgraph order
// determines the order of shareable root field declarations.
func (c *Composer) ComposeSubgraphs(ctx context.Context, subgraphs []*subgraph.Subgraph) *Result {
	names := make([]string, len(subgraphs))
	for i, sg := range subgraphs {
		names[i] = sg.Name
	}
	start := time.Now()
	eventbus.Publish(ctx, events.CompositionStart{Subgraphs: names})

	g := buildGraph(subgraphs, resolvability.WithMaxDepth(c.opt.MaxDepth))
	errs := g.Validate()

	duration := time.Since(start)
	eventbus.Publish(ctx, events.CompositionFinish{Subgraphs: names, Errors: errs, Duration: duration})
	if len(errs) > 0 {
		c.opt.Logger.Info("composition has unresolvable fields",
			zap.Strings("subgraphs", names),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", duration))
	} else {
		c.opt.Logger.Debug("composition resolvable",
			zap.Strings("subgraphs", names),
			zap.Duration("duration", duration))
	}
	return &Result{Subgraphs: subgraphs, Errors: errs}
}
