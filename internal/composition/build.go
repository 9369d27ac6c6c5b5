package composition

import (
	"slices"

	resolvability "github.com/hanpama/fedgraph/internal/resolvability"
	subgraph "github.com/hanpama/fedgraph/internal/subgraph"
)

// mergedType is the federated view of an object type: the union of the
// fields every subgraph can resolve, with the subgraphs resolving each.
type mergedType struct {
	name string

	fields             []*resolvability.GraphFieldData
	fieldIndex         map[string]*resolvability.GraphFieldData
	inaccessibleFields map[string]bool
}

func (m *mergedType) accessibleFields() []*resolvability.GraphFieldData {
	out := make([]*resolvability.GraphFieldData, 0, len(m.fields))
	for _, f := range m.fields {
		if !m.inaccessibleFields[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func (m *mergedType) addField(sg *subgraph.Subgraph, t *subgraph.Type, f *subgraph.Field, inaccessibleTypes map[string]bool) {
	if f.Inaccessible || inaccessibleTypes[f.TypeName] {
		m.inaccessibleFields[f.Name] = true
	}
	if !t.Resolves(f) {
		return
	}
	fd, ok := m.fieldIndex[f.Name]
	if !ok {
		fd = &resolvability.GraphFieldData{
			Name:          f.Name,
			NamedTypeName: f.TypeName,
			IsLeaf:        sg.Type(f.TypeName).IsLeaf(),
		}
		m.fieldIndex[f.Name] = fd
		m.fields = append(m.fields, fd)
	}
	if !slices.Contains(fd.SubgraphNames, sg.Name) {
		fd.SubgraphNames = append(fd.SubgraphNames, sg.Name)
	}
}

// federation is the cross-subgraph index the graph is built from.
type federation struct {
	subgraphs []*subgraph.Subgraph

	// keys holds, per entity type, every key field set any subgraph declares
	// for it in first-seen order. Interface object keys count for every
	// implementation of the interface.
	keys map[string][]string
	// implementations holds, per interface, the object types implementing it
	// in any subgraph.
	implementations map[string][]string
	// inaccessibleTypes holds the types any subgraph marks @inaccessible.
	inaccessibleTypes map[string]bool
}

func newFederation(subgraphs []*subgraph.Subgraph) *federation {
	fed := &federation{
		subgraphs:         subgraphs,
		keys:              make(map[string][]string),
		implementations:   make(map[string][]string),
		inaccessibleTypes: make(map[string]bool),
	}
	for _, sg := range subgraphs {
		for _, t := range sg.Types {
			if t.Inaccessible {
				fed.inaccessibleTypes[t.Name] = true
			}
			if t.Kind == subgraph.KindInterface {
				for _, name := range t.PossibleTypes {
					fed.implementations[t.Name] = appendUnique(fed.implementations[t.Name], name)
				}
			}
		}
	}
	for _, sg := range subgraphs {
		for _, t := range sg.Types {
			if t.Kind != subgraph.KindObject {
				continue
			}
			targets := []string{t.Name}
			if t.InterfaceObject {
				targets = fed.implementations[t.Name]
			}
			for _, name := range targets {
				for _, key := range t.Keys {
					fed.keys[name] = appendUnique(fed.keys[name], key.FieldSet)
				}
			}
		}
	}
	return fed
}

// mergeObjectTypes merges the object types of all subgraphs in first-seen
// order. Fields a subgraph does not resolve are not owned by it. A field
// is inaccessible if any subgraph marks it or its type @inaccessible. The
// fields of an interface object are merged into every implementation of the
// interface.
func (fed *federation) mergeObjectTypes() []*mergedType {
	var order []*mergedType
	byName := make(map[string]*mergedType)
	merged := func(name string) *mergedType {
		m, ok := byName[name]
		if !ok {
			m = &mergedType{
				name:               name,
				fieldIndex:         make(map[string]*resolvability.GraphFieldData),
				inaccessibleFields: make(map[string]bool),
			}
			byName[name] = m
			order = append(order, m)
		}
		return m
	}
	for _, sg := range fed.subgraphs {
		for _, t := range sg.Types {
			if t.Kind != subgraph.KindObject || t.InterfaceObject {
				continue
			}
			m := merged(t.Name)
			for _, f := range t.Fields {
				m.addField(sg, t, f, fed.inaccessibleTypes)
			}
		}
	}
	for _, sg := range fed.subgraphs {
		for _, t := range sg.Types {
			if !t.InterfaceObject {
				continue
			}
			for _, name := range fed.implementations[t.Name] {
				m := merged(name)
				for _, f := range t.Fields {
					m.addField(sg, t, f, fed.inaccessibleTypes)
				}
			}
		}
	}
	return order
}

// buildGraph registers every subgraph with the graph builder, records the key
// field sets each subgraph copy satisfies and initializes the merged object
// types.
func buildGraph(subgraphs []*subgraph.Subgraph, opts ...resolvability.Option) *resolvability.Graph {
	fed := newFederation(subgraphs)
	g := resolvability.NewGraph(opts...)
	for _, sg := range subgraphs {
		g.SetSubgraphName(sg.Name)
		for _, t := range sg.Types {
			switch {
			case t.InterfaceObject:
				addInterfaceObject(g, sg, t, fed.implementations[t.Name])
			case t.Kind == subgraph.KindObject:
				addObject(g, sg, t)
			case t.IsAbstract():
				node := g.AddOrUpdateNode(t.Name, resolvability.Abstract())
				for _, name := range t.PossibleTypes {
					g.AddEdge(node, g.AddOrUpdateNode(name), name, true)
				}
			}
		}
	}
	for _, sg := range subgraphs {
		fed.addSatisfiedFieldSets(g, sg)
	}

	for _, sg := range subgraphs {
		for _, t := range sg.Types {
			if t.Inaccessible {
				g.SetNodeInaccessible(t.Name)
			}
		}
	}
	for _, m := range fed.mergeObjectTypes() {
		g.InitializeNode(m.name, m.accessibleFields())
	}
	return g
}

// addSatisfiedFieldSets records, for every entity copy of sg, each key field
// set declared anywhere for the entity that the copy can provide. Keys whose
// fields are @external in sg are not satisfied even when sg declares them.
func (fed *federation) addSatisfiedFieldSets(g *resolvability.Graph, sg *subgraph.Subgraph) {
	for _, t := range sg.Types {
		if t.Kind != subgraph.KindObject {
			continue
		}
		names := []string{t.Name}
		if t.InterfaceObject {
			names = fed.implementations[t.Name]
		}
		for _, name := range names {
			node := g.Node(sg.Name, name)
			if node == nil || g.EntityDataNode(name) == nil {
				continue
			}
			for _, fieldSet := range fed.keys[name] {
				if sg.Satisfies(t.Name, fieldSet) {
					node.AddSatisfiedFieldSet(fieldSet)
				}
			}
		}
	}
}

func addObject(g *resolvability.Graph, sg *subgraph.Subgraph, t *subgraph.Type) {
	var head resolvability.EdgeHead
	var node *resolvability.GraphNode
	if resolvability.IsRootTypeName(t.Name) {
		head = g.RootNode(resolvability.RootTypeName(t.Name))
	} else {
		node = g.AddOrUpdateNode(t.Name)
		head = node
	}
	addFieldEdges(g, sg, head, t)
	if node == nil || !t.IsEntity() {
		return
	}
	addEntityTargets(g, sg, t.Name, t)
}

// addInterfaceObject registers the interface object t of sg as an abstract
// node leading to a copy of every implementation of the interface. Each copy
// resolves the fields sg declares on t and is reachable through t's keys.
func addInterfaceObject(g *resolvability.Graph, sg *subgraph.Subgraph, t *subgraph.Type, implementations []string) {
	iface := g.AddOrUpdateNode(t.Name, resolvability.Abstract())
	for _, name := range implementations {
		node := g.AddOrUpdateNode(name)
		g.AddEdge(iface, node, name, true)
		addFieldEdges(g, sg, node, t)
		addEntityTargets(g, sg, name, t)
	}
}

func addFieldEdges(g *resolvability.Graph, sg *subgraph.Subgraph, head resolvability.EdgeHead, t *subgraph.Type) {
	for _, f := range t.Fields {
		if !t.Resolves(f) {
			continue
		}
		g.AddEdge(head, addNamedType(g, sg, f.TypeName), f.Name, false)
	}
}

// addEntityTargets makes sg a target of every resolvable key t declares for
// the entity typeName. A key stays a target even if its fields are @external
// in sg.
func addEntityTargets(g *resolvability.Graph, sg *subgraph.Subgraph, typeName string, t *subgraph.Type) {
	entity := g.AddEntityDataNode(typeName)
	for _, key := range t.Keys {
		if key.Resolvable {
			entity.AddTargetSubgraphByFieldSet(key.FieldSet, sg.Name)
		}
	}
}

func addNamedType(g *resolvability.Graph, sg *subgraph.Subgraph, typeName string) *resolvability.GraphNode {
	t := sg.Type(typeName)
	switch {
	case t.IsLeaf():
		return g.AddOrUpdateNode(typeName, resolvability.Leaf())
	case t.IsAbstract() || t.InterfaceObject:
		return g.AddOrUpdateNode(typeName, resolvability.Abstract())
	default:
		return g.AddOrUpdateNode(typeName)
	}
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
