package resolvability

import "sort"

// Edge connects a node to the node a field (or implementation) leads to.
type Edge struct {
	ID             int
	Node           *GraphNode
	Name           string
	IsAbstract     bool
	IsInaccessible bool

	// walk is the index of the last walk that expanded this edge. Walks
	// never interleave, so one stamp per edge replaces a set of indices.
	walk int
}

func newEdge(id int, node *GraphNode, name string, isAbstract bool) *Edge {
	return &Edge{ID: id, Node: node, Name: name, IsAbstract: isAbstract, walk: -1}
}

// segment is the path segment appended when the edge is followed.
func (e *Edge) segment() string {
	if e.IsAbstract {
		return "... on " + e.Name
	}
	return e.Name
}

func (e *Edge) isInaccessible() bool {
	return e.IsInaccessible || e.Node.IsInaccessible
}

// markWalked stamps the edge with walk and reports whether it had not been
// expanded by that walk yet.
func (e *Edge) markWalked(walk int) bool {
	if e.walk == walk {
		return false
	}
	e.walk = walk
	return true
}

// EdgeHead is the head of an edge: either a *RootNode or a *GraphNode.
type EdgeHead interface {
	headTypeName() string
}

type fieldEdge struct {
	fieldName string
	edge      *Edge
}

// GraphNode is a type as it exists in one subgraph.
type GraphNode struct {
	Name         NodeName
	SubgraphName string
	TypeName     string

	IsAbstract        bool
	IsLeaf            bool
	IsInaccessible    bool
	HasEntitySiblings bool

	fields             *fieldDataSet
	edges              []fieldEdge
	edgeIndex          map[string]int
	entityEdges        []*Edge
	satisfiedFieldSets *orderedSet[string]
}

type NodeOptions struct {
	IsAbstract bool
	IsLeaf     bool
}

type NodeOption func(*NodeOptions)

// Abstract marks the node as an interface or union.
func Abstract() NodeOption { return func(o *NodeOptions) { o.IsAbstract = true } }

// Leaf marks the node as a scalar or enum.
func Leaf() NodeOption { return func(o *NodeOptions) { o.IsLeaf = true } }

func newGraphNode(subgraphName, typeName string, o NodeOptions) *GraphNode {
	return &GraphNode{
		Name:               newNodeName(subgraphName, typeName),
		SubgraphName:       subgraphName,
		TypeName:           typeName,
		IsAbstract:         o.IsAbstract,
		IsLeaf:             o.IsLeaf,
		edgeIndex:          make(map[string]int),
		satisfiedFieldSets: newOrderedSet[string](),
	}
}

func (n *GraphNode) headTypeName() string { return n.TypeName }

func (n *GraphNode) setEdge(fieldName string, edge *Edge) {
	if i, ok := n.edgeIndex[fieldName]; ok {
		n.edges[i].edge = edge
		return
	}
	n.edgeIndex[fieldName] = len(n.edges)
	n.edges = append(n.edges, fieldEdge{fieldName: fieldName, edge: edge})
}

// Edge returns the outgoing edge for fieldName, or nil.
func (n *GraphNode) Edge(fieldName string) *Edge {
	i, ok := n.edgeIndex[fieldName]
	if !ok {
		return nil
	}
	return n.edges[i].edge
}

func (n *GraphNode) EntityEdges() []*Edge { return n.entityEdges }

// AddSatisfiedFieldSet records a key field set this subgraph can provide.
func (n *GraphNode) AddSatisfiedFieldSet(fieldSet string) {
	n.satisfiedFieldSets.add(fieldSet)
}

func (n *GraphNode) SatisfiedFieldSets() []string {
	return append([]string(nil), n.satisfiedFieldSets.values()...)
}

// markInaccessibleEdges marks every edge whose field is not part of the
// merged field set. Implementation edges of abstract nodes are not fields.
func (n *GraphNode) markInaccessibleEdges() {
	if n.IsAbstract {
		return
	}
	for _, fe := range n.edges {
		if !n.fields.has(fe.fieldName) {
			fe.edge.IsInaccessible = true
		}
	}
}

// accessibleEntityNodeNames is the transitive closure of the node's entity
// edges, excluding the node itself.
func (n *GraphNode) accessibleEntityNodeNames() *orderedSet[NodeName] {
	names := newOrderedSet[NodeName]()
	queue := []*GraphNode{n}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, edge := range current.entityEdges {
			if edge.Node == n || !names.add(edge.Node.Name) {
				continue
			}
			queue = append(queue, edge.Node)
		}
	}
	return names
}

// RootNode is a root operation type. A root field may be declared in several
// subgraphs, so each field holds one edge per declaring subgraph.
type RootNode struct {
	TypeName RootTypeName

	fields     *fieldDataSet
	fieldNames []string
	edges      map[string][]*Edge
}

func newRootNode(typeName RootTypeName) *RootNode {
	return &RootNode{TypeName: typeName, edges: make(map[string][]*Edge)}
}

func (r *RootNode) headTypeName() string { return string(r.TypeName) }

func (r *RootNode) addEdge(fieldName string, edge *Edge) {
	if _, ok := r.edges[fieldName]; !ok {
		r.fieldNames = append(r.fieldNames, fieldName)
	}
	r.edges[fieldName] = append(r.edges[fieldName], edge)
}

// Edges returns the edges of a root field in subgraph registration order.
func (r *RootNode) Edges(fieldName string) []*Edge { return r.edges[fieldName] }

func (r *RootNode) FieldNames() []string { return r.fieldNames }

func (r *RootNode) markInaccessibleEdges() {
	for fieldName, edges := range r.edges {
		if r.fields.has(fieldName) {
			continue
		}
		for _, edge := range edges {
			edge.IsInaccessible = true
		}
	}
}

// subgraphNames returns the subgraphs declaring fieldName.
func (r *RootNode) subgraphNames(fieldName string) []string {
	if fd := r.fields.get(fieldName); fd != nil {
		return fd.SubgraphNames
	}
	var names []string
	for _, edge := range r.edges[fieldName] {
		names = append(names, edge.Node.SubgraphName)
	}
	return names
}

// EntityDataNode records, for one entity type, which subgraphs each key field
// set makes reachable.
type EntityDataNode struct {
	TypeName string

	fieldSets                     []string
	targetSubgraphNamesByFieldSet map[string]*orderedSet[string]
	fieldSetsByTargetSubgraphName map[string]*orderedSet[string]
}

func newEntityDataNode(typeName string) *EntityDataNode {
	return &EntityDataNode{
		TypeName:                      typeName,
		targetSubgraphNamesByFieldSet: make(map[string]*orderedSet[string]),
		fieldSetsByTargetSubgraphName: make(map[string]*orderedSet[string]),
	}
}

// AddTargetSubgraphByFieldSet records that satisfying fieldSet reaches
// subgraphName (a resolvable @key declared there).
func (e *EntityDataNode) AddTargetSubgraphByFieldSet(fieldSet, subgraphName string) {
	targets, ok := e.targetSubgraphNamesByFieldSet[fieldSet]
	if !ok {
		targets = newOrderedSet[string]()
		e.targetSubgraphNamesByFieldSet[fieldSet] = targets
		e.fieldSets = append(e.fieldSets, fieldSet)
	}
	targets.add(subgraphName)
	fieldSets, ok := e.fieldSetsByTargetSubgraphName[subgraphName]
	if !ok {
		fieldSets = newOrderedSet[string]()
		e.fieldSetsByTargetSubgraphName[subgraphName] = fieldSets
	}
	fieldSets.add(fieldSet)
}

func (e *EntityDataNode) TargetSubgraphNames(fieldSet string) []string {
	targets, ok := e.targetSubgraphNamesByFieldSet[fieldSet]
	if !ok {
		return nil
	}
	return targets.values()
}

// FieldSetsByTargetSubgraphName returns a copy of the inverse key mapping.
func (e *EntityDataNode) FieldSetsByTargetSubgraphName() map[string][]string {
	out := make(map[string][]string, len(e.fieldSetsByTargetSubgraphName))
	for subgraphName, fieldSets := range e.fieldSetsByTargetSubgraphName {
		out[subgraphName] = append([]string(nil), fieldSets.values()...)
	}
	return out
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
