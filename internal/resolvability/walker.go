package resolvability

import "strings"

// validation is the traversal context of one Graph.Validate call. Its caches
// are shared by every walk of that call.
type validation struct {
	graph    *Graph
	maxDepth int
	errors   []error

	entityResolutions map[NodeName]*entityResolution
	entityWalks       int
	depthExceeded     map[string]struct{}

	// expanded holds the entity nodes whose nested entities were already
	// queued for the current root field.
	expanded map[NodeName]struct{}
}

func newValidation(g *Graph) *validation {
	return &validation{
		graph:             g,
		maxDepth:          g.opt.MaxDepth,
		entityResolutions: make(map[NodeName]*entityResolution),
		depthExceeded:     make(map[string]struct{}),
	}
}

func (v *validation) exceedDepth(path string) {
	if _, ok := v.depthExceeded[path]; ok {
		return
	}
	v.depthExceeded[path] = struct{}{}
	v.errors = append(v.errors, &DepthLimitError{Path: path, MaxDepth: v.maxDepth})
}

// rootFieldState is reset for every root field. Shareable declarations of the
// same root field share it, so a path left unresolved by one declaration can
// be completed by another.
type rootFieldState struct {
	dataByPath      map[FieldPath]*NodeResolutionData
	unresolvedPaths *orderedSet[FieldPath]
	entityPaths     *entityPathIndex
}

func newRootFieldState() *rootFieldState {
	return &rootFieldState{
		dataByPath:      make(map[FieldPath]*NodeResolutionData),
		unresolvedPaths: newOrderedSet[FieldPath](),
		entityPaths:     newEntityPathIndex(),
	}
}

func (v *validation) validateRootField(root *RootNode, fieldName string) {
	edges := root.edges[fieldName]
	for _, edge := range edges {
		if edge.IsInaccessible {
			return
		}
	}
	state := newRootFieldState()
	for _, edge := range edges {
		w := &rootFieldWalker{v: v, index: v.graph.nextWalk(), state: state}
		w.visitEdge(edge, rootFieldPath(root.TypeName), 1)
	}
	rootField := newRootFieldData(root.TypeName, fieldName, root.subgraphNames(fieldName))
	for _, path := range state.unresolvedPaths.values() {
		v.errors = append(v.errors, unresolvableFieldErrors(rootField, string(path), state.dataByPath[path], nil)...)
	}
	if state.entityPaths.len() == 0 {
		return
	}
	v.expanded = make(map[NodeName]struct{})
	if failure := v.validateEntities(state.entityPaths, 1); failure != nil {
		v.errors = append(v.errors, failure.errors(rootField)...)
	}
}

// rootFieldWalker walks the graph below one declaration of a root field.
type rootFieldWalker struct {
	v     *validation
	index int
	state *rootFieldState
}

// visitEdge reports whether the field the edge represents counts as reached.
func (w *rootFieldWalker) visitEdge(edge *Edge, path FieldPath, depth int) bool {
	if edge.isInaccessible() {
		return false
	}
	if edge.Node.IsLeaf || !edge.markWalked(w.index) {
		return true
	}
	next := path.append(edge.segment())
	if depth > w.v.maxDepth {
		w.v.exceedDepth(string(next))
		return true
	}
	if edge.Node.IsAbstract {
		w.visitAbstractNode(edge.Node, next, depth)
		return true
	}
	w.visitConcreteNode(edge.Node, next, depth)
	return true
}

func (w *rootFieldWalker) visitAbstractNode(node *GraphNode, path FieldPath, depth int) {
	for _, fe := range node.edges {
		w.visitEdge(fe.edge, path, depth+1)
	}
}

// visitConcreteNode judges the node at path. A copy without edges still has
// to account for the merged fields, so only nodes without fields are skipped.
func (w *rootFieldWalker) visitConcreteNode(node *GraphNode, path FieldPath, depth int) {
	if node.fields.len() == 0 {
		return
	}
	// Entity fields may be split across subgraphs; they are judged as a
	// group once the walk is complete.
	if node.HasEntitySiblings {
		w.state.entityPaths.add(path, node.Name)
		return
	}
	data, ok := w.state.dataByPath[path]
	if !ok {
		data = newNodeResolutionData(node)
		w.state.dataByPath[path] = data
	}
	for _, fe := range node.edges {
		if w.visitEdge(fe.edge, path, depth+1) {
			data.Add(fe.fieldName)
		}
	}
	if data.IsResolved() {
		w.state.unresolvedPaths.delete(path)
	} else {
		w.state.unresolvedPaths.add(path)
	}
}

// entityResolution is the cached outcome of walking one entity node together
// with its accessible siblings. Paths are relative to the entity.
type entityResolution struct {
	node            *GraphNode
	dataByPath      map[FieldPath]*NodeResolutionData
	unresolvedPaths *orderedSet[FieldPath]
	nested          *entityPathIndex
}

func (r *entityResolution) isResolved() bool { return r.unresolvedPaths.len() == 0 }

// resolveEntity walks node once per validation and caches the result.
func (v *validation) resolveEntity(node *GraphNode) *entityResolution {
	if res, ok := v.entityResolutions[node.Name]; ok {
		return res
	}
	res := &entityResolution{
		node:            node,
		dataByPath:      make(map[FieldPath]*NodeResolutionData),
		unresolvedPaths: newOrderedSet[FieldPath](),
		nested:          newEntityPathIndex(),
	}
	v.entityResolutions[node.Name] = res
	v.entityWalks++
	w := &entityWalker{v: v, index: v.graph.nextWalk(), res: res}
	w.visitEntityNode(node)
	return res
}

type entityWalker struct {
	v     *validation
	index int
	res   *entityResolution
}

// visitEntityNode walks the entity, then each sibling reachable through a
// satisfied key until nothing is left unresolved.
func (w *entityWalker) visitEntityNode(origin *GraphNode) {
	w.visitConcreteNode(origin, "", 1)
	accessible := origin.accessibleEntityNodeNames()
	for _, sibling := range w.v.graph.nodesByTypeName[origin.TypeName] {
		if w.res.unresolvedPaths.len() == 0 {
			return
		}
		if sibling == origin || !accessible.has(sibling.Name) {
			continue
		}
		w.visitConcreteNode(sibling, "", 1)
	}
}

func (w *entityWalker) visitEdge(edge *Edge, path FieldPath, depth int) bool {
	if edge.isInaccessible() {
		return false
	}
	if edge.Node.IsLeaf || !edge.markWalked(w.index) {
		return true
	}
	next := path.append(edge.segment())
	if depth > w.v.maxDepth {
		w.v.exceedDepth(string(w.res.node.Name) + string(next))
		return true
	}
	if edge.Node.HasEntitySiblings {
		w.res.nested.add(next, edge.Node.Name)
		return true
	}
	if edge.Node.IsAbstract {
		for _, fe := range edge.Node.edges {
			w.visitEdge(fe.edge, next, depth+1)
		}
		return true
	}
	w.visitConcreteNode(edge.Node, next, depth)
	return true
}

func (w *entityWalker) visitConcreteNode(node *GraphNode, path FieldPath, depth int) {
	if node.fields.len() == 0 {
		return
	}
	data, ok := w.res.dataByPath[path]
	if !ok {
		data = newNodeResolutionData(node)
		w.res.dataByPath[path] = data
	}
	for _, fe := range node.edges {
		if w.visitEdge(fe.edge, path, depth+1) {
			data.Add(fe.fieldName)
		}
	}
	if data.IsResolved() {
		w.res.unresolvedPaths.delete(path)
	} else {
		w.res.unresolvedPaths.add(path)
	}
}

func pathFromRoot(paths []FieldPath) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(string(p))
	}
	return b.String()
}
