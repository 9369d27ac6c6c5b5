package subgraph

import (
	"context"
	"fmt"
)

type InMemorySubgraph struct {
	Name    string
	Content string
}

// InMemoryDiscovery serves subgraphs held in memory, in the order given.
type InMemoryDiscovery struct {
	metas    []*Metadata
	contents map[string]string
}

func NewInMemoryDiscovery(subgraphs []InMemorySubgraph) *InMemoryDiscovery {
	discovery := &InMemoryDiscovery{contents: make(map[string]string)}
	for _, sg := range subgraphs {
		if _, ok := discovery.contents[sg.Name]; !ok {
			discovery.metas = append(discovery.metas, &Metadata{Name: sg.Name, FilePath: sg.Name + ".graphql"})
		}
		discovery.contents[sg.Name] = sg.Content
	}
	return discovery
}

func (d *InMemoryDiscovery) ListMetadata(ctx context.Context) ([]*Metadata, error) {
	return append([]*Metadata(nil), d.metas...), nil
}

func (d *InMemoryDiscovery) ReadSDL(ctx context.Context, name string) (string, error) {
	content, ok := d.contents[name]
	if !ok {
		return "", fmt.Errorf("subgraph %q not found", name)
	}
	return content, nil
}
