// Package resolvability proves that every field path reachable from a root
// field of a federated schema can be resolved by some routing of subgraph
// fetches, and explains the paths that cannot.
//
// A Graph is built once per composition: nodes are registered per subgraph
// (SetSubgraphName, AddOrUpdateNode, AddEdge, AddEntityDataNode), then every
// object type is finalized with its merged fields (InitializeNode), and
// Validate walks the graph from each root field.
package resolvability

import "fmt"

const DefaultMaxDepth = 128

type Options struct {
	// MaxDepth bounds the number of segments a walked path may have, and the
	// number of nested entity levels. Paths beyond it are reported as a
	// *DepthLimitError instead of being walked.
	MaxDepth int
}

type Option func(*Options)

func WithMaxDepth(n int) Option { return func(o *Options) { o.MaxDepth = n } }

type Graph struct {
	opt Options

	subgraphName    string
	nextEdgeID      int
	walk            int
	entityDataNodes map[string]*EntityDataNode
	nodeByNodeName  map[NodeName]*GraphNode
	nodesByTypeName map[string][]*GraphNode
	rootNodes       map[RootTypeName]*RootNode
}

func NewGraph(opts ...Option) *Graph {
	op := Options{MaxDepth: DefaultMaxDepth}
	for _, f := range opts {
		f(&op)
	}
	if op.MaxDepth <= 0 {
		op.MaxDepth = DefaultMaxDepth
	}
	return &Graph{
		opt:             op,
		subgraphName:    "N/A",
		walk:            -1,
		entityDataNodes: make(map[string]*EntityDataNode),
		nodeByNodeName:  make(map[NodeName]*GraphNode),
		nodesByTypeName: make(map[string][]*GraphNode),
		rootNodes:       make(map[RootTypeName]*RootNode),
	}
}

// SetSubgraphName scopes subsequent AddOrUpdateNode calls to subgraphName.
func (g *Graph) SetSubgraphName(subgraphName string) {
	g.subgraphName = subgraphName
}

func (g *Graph) RootNode(typeName RootTypeName) *RootNode {
	root, ok := g.rootNodes[typeName]
	if !ok {
		root = newRootNode(typeName)
		g.rootNodes[typeName] = root
	}
	return root
}

// AddOrUpdateNode returns the node for typeName in the current subgraph,
// creating it if needed. Repeated calls widen the abstract and leaf flags.
func (g *Graph) AddOrUpdateNode(typeName string, opts ...NodeOption) *GraphNode {
	var o NodeOptions
	for _, f := range opts {
		f(&o)
	}
	name := newNodeName(g.subgraphName, typeName)
	if node, ok := g.nodeByNodeName[name]; ok {
		node.IsAbstract = node.IsAbstract || o.IsAbstract
		node.IsLeaf = node.IsLeaf || o.IsLeaf
		return node
	}
	node := newGraphNode(g.subgraphName, typeName, o)
	g.nodeByNodeName[name] = node
	g.nodesByTypeName[typeName] = append(g.nodesByTypeName[typeName], node)
	return node
}

// Node returns the node registered for typeName in subgraphName, or nil.
func (g *Graph) Node(subgraphName, typeName string) *GraphNode {
	return g.nodeByNodeName[newNodeName(subgraphName, typeName)]
}

// AddEdge connects head to tail through fieldName. Root fields accumulate one
// edge per declaring subgraph; other nodes keep a single edge per field.
// Abstract edges point from an interface or union to an implementation and
// are named after the implementing type.
func (g *Graph) AddEdge(head EdgeHead, tail *GraphNode, fieldName string, isAbstract bool) *Edge {
	switch h := head.(type) {
	case *RootNode:
		edge := newEdge(g.nextID(), tail, fieldName, false)
		h.addEdge(fieldName, edge)
		return edge
	case *GraphNode:
		name := fieldName
		if isAbstract {
			name = tail.TypeName
		}
		edge := newEdge(g.nextID(), tail, name, isAbstract)
		h.setEdge(fieldName, edge)
		return edge
	default:
		panic(fmt.Sprintf("resolvability: unexpected edge head %T", head))
	}
}

func (g *Graph) AddEntityDataNode(typeName string) *EntityDataNode {
	node, ok := g.entityDataNodes[typeName]
	if !ok {
		node = newEntityDataNode(typeName)
		g.entityDataNodes[typeName] = node
	}
	return node
}

func (g *Graph) EntityDataNode(typeName string) *EntityDataNode {
	return g.entityDataNodes[typeName]
}

func (g *Graph) nextID() int {
	id := g.nextEdgeID
	g.nextEdgeID++
	return id
}

func (g *Graph) nextWalk() int {
	g.walk++
	return g.walk
}

// SetNodeInaccessible flags every subgraph copy of typeName.
func (g *Graph) SetNodeInaccessible(typeName string) {
	for _, node := range g.nodesByTypeName[typeName] {
		node.IsInaccessible = true
	}
}

// InitializeNode attaches the merged fields of typeName once every subgraph
// has been registered. Fields missing from fields are treated as
// inaccessible. For entities, an entity edge is added for every satisfied key
// field set that targets another subgraph.
func (g *Graph) InitializeNode(typeName string, fields []*GraphFieldData) {
	set := newFieldDataSet(fields)
	if IsRootTypeName(typeName) {
		root := g.RootNode(RootTypeName(typeName))
		root.fields = set
		root.markInaccessibleEdges()
		return
	}
	entityData := g.entityDataNodes[typeName]
	for _, node := range g.nodesByTypeName[typeName] {
		node.fields = set
		node.markInaccessibleEdges()
		node.IsLeaf = false
		if entityData == nil {
			continue
		}
		node.HasEntitySiblings = true
		node.entityEdges = nil
		for _, fieldSet := range node.satisfiedFieldSets.values() {
			for _, subgraphName := range entityData.TargetSubgraphNames(fieldSet) {
				if subgraphName == node.SubgraphName {
					continue
				}
				sibling := g.nodeByNodeName[newNodeName(subgraphName, typeName)]
				if sibling == nil {
					continue
				}
				node.entityEdges = append(node.entityEdges, newEdge(g.nextID(), sibling, "", false))
			}
		}
	}
}

// Validate walks every accessible root field and returns one error per
// unresolvable field, in deterministic order. Every root field is processed
// before returning.
func (g *Graph) Validate() []error {
	return g.validate().errors
}

func (g *Graph) validate() *validation {
	v := newValidation(g)
	for _, typeName := range rootTypeNames {
		root, ok := g.rootNodes[typeName]
		if !ok {
			continue
		}
		for _, fieldName := range root.fieldNames {
			v.validateRootField(root, fieldName)
		}
	}
	return v
}
