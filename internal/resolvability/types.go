package resolvability

import "strings"

// NodeName identifies a subgraph-scoped copy of a type: "<subgraph>.<Type>".
type NodeName string

func newNodeName(subgraphName, typeName string) NodeName {
	return NodeName(subgraphName + "." + typeName)
}

// FieldPath is a dot-delimited selection path. Paths from a root field start
// with the lower-cased root type name ("query.product.name"); paths relative
// to an entity start with a period (".product.name"). Abstract fan-out adds
// "... on <Type>" segments.
type FieldPath string

func (p FieldPath) append(segment string) FieldPath {
	return FieldPath(string(p) + "." + segment)
}

type RootTypeName string

const (
	Query        RootTypeName = "Query"
	Mutation     RootTypeName = "Mutation"
	Subscription RootTypeName = "Subscription"
)

// rootTypeNames is the order in which root types are validated.
var rootTypeNames = []RootTypeName{Query, Mutation, Subscription}

func IsRootTypeName(typeName string) bool {
	switch RootTypeName(typeName) {
	case Query, Mutation, Subscription:
		return true
	}
	return false
}

func rootFieldPath(typeName RootTypeName) FieldPath {
	return FieldPath(strings.ToLower(string(typeName)))
}

// GraphFieldData is the merged view of a field: every subgraph that can
// resolve it and whether its named type is a leaf.
type GraphFieldData struct {
	Name          string
	NamedTypeName string
	IsLeaf        bool
	SubgraphNames []string
}

// fieldDataSet holds the merged fields of a type in declaration order.
type fieldDataSet struct {
	names  []string
	byName map[string]*GraphFieldData
}

func newFieldDataSet(fields []*GraphFieldData) *fieldDataSet {
	s := &fieldDataSet{
		names:  make([]string, 0, len(fields)),
		byName: make(map[string]*GraphFieldData, len(fields)),
	}
	for _, f := range fields {
		if _, ok := s.byName[f.Name]; ok {
			continue
		}
		s.names = append(s.names, f.Name)
		s.byName[f.Name] = f
	}
	return s
}

func (s *fieldDataSet) has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byName[name]
	return ok
}

func (s *fieldDataSet) get(name string) *GraphFieldData {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

func (s *fieldDataSet) len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// orderedSet keeps insertion order so that validation output is deterministic.
type orderedSet[T comparable] struct {
	items []T
	index map[T]int
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[T]int)}
}

func (s *orderedSet[T]) add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) delete(v T) {
	i, ok := s.index[v]
	if !ok {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, v)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
}

func (s *orderedSet[T]) has(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) len() int { return len(s.items) }

func (s *orderedSet[T]) values() []T { return s.items }

// entityPathIndex maps a field path to the entity nodes reached at it.
type entityPathIndex struct {
	paths     []FieldPath
	nodeNames map[FieldPath]*orderedSet[NodeName]
}

func newEntityPathIndex() *entityPathIndex {
	return &entityPathIndex{nodeNames: make(map[FieldPath]*orderedSet[NodeName])}
}

func (x *entityPathIndex) add(path FieldPath, nodeName NodeName) {
	names, ok := x.nodeNames[path]
	if !ok {
		names = newOrderedSet[NodeName]()
		x.nodeNames[path] = names
		x.paths = append(x.paths, path)
	}
	names.add(nodeName)
}

func (x *entityPathIndex) merge(other *entityPathIndex) {
	for _, path := range other.paths {
		for _, nodeName := range other.nodeNames[path].values() {
			x.add(path, nodeName)
		}
	}
}

func (x *entityPathIndex) len() int { return len(x.paths) }
