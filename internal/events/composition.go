package events

import "time"

// CompositionStart is emitted before the resolvability graph is built.
type CompositionStart struct {
	Subgraphs []string
}

// CompositionFinish is emitted after the graph has been validated. Errors
// holds the unresolvable fields found.
type CompositionFinish struct {
	Subgraphs []string
	Errors    []error
	Duration  time.Duration
}
