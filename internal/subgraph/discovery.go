package subgraph

import (
	"context"
)

type Metadata struct {
	Name     string
	FilePath string
}

// Discovery lists subgraphs and reads their SDL. ListMetadata returns
// subgraphs in a stable order; composition registers them in that order.
type Discovery interface {
	ListMetadata(ctx context.Context) ([]*Metadata, error)
	ReadSDL(ctx context.Context, name string) (string, error)
}
