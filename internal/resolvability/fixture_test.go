package resolvability

import "slices"

var leafTypes = map[string]bool{"ID": true, "String": true, "Int": true, "Float": true, "Boolean": true}

// fixture builds a Graph the way composition does: edges per subgraph, merged
// field data per type, then InitializeNode for every object type.
type fixture struct {
	g          *Graph
	typeNames  []string
	fieldsByTy map[string][]*GraphFieldData
	abstract   map[string]bool
}

func newFixture(opts ...Option) *fixture {
	return &fixture{
		g:          NewGraph(opts...),
		fieldsByTy: make(map[string][]*GraphFieldData),
		abstract:   make(map[string]bool),
	}
}

func (f *fixture) node(sg, typeName string) *GraphNode {
	f.g.SetSubgraphName(sg)
	if leafTypes[typeName] {
		return f.g.AddOrUpdateNode(typeName, Leaf())
	}
	if f.abstract[typeName] {
		return f.g.AddOrUpdateNode(typeName, Abstract())
	}
	return f.g.AddOrUpdateNode(typeName)
}

func (f *fixture) merge(typeName, fieldName, fieldType, sg string) {
	if !slices.Contains(f.typeNames, typeName) {
		f.typeNames = append(f.typeNames, typeName)
	}
	for _, fd := range f.fieldsByTy[typeName] {
		if fd.Name == fieldName {
			if !slices.Contains(fd.SubgraphNames, sg) {
				fd.SubgraphNames = append(fd.SubgraphNames, sg)
			}
			return
		}
	}
	f.fieldsByTy[typeName] = append(f.fieldsByTy[typeName], &GraphFieldData{
		Name:          fieldName,
		NamedTypeName: fieldType,
		IsLeaf:        leafTypes[fieldType],
		SubgraphNames: []string{sg},
	})
}

// field declares typeName.fieldName: fieldType in subgraph sg.
func (f *fixture) field(sg, typeName, fieldName, fieldType string) *fixture {
	tail := f.node(sg, fieldType)
	if IsRootTypeName(typeName) {
		f.g.AddEdge(f.g.RootNode(RootTypeName(typeName)), tail, fieldName, false)
	} else {
		f.g.AddEdge(f.node(sg, typeName), tail, fieldName, false)
	}
	f.merge(typeName, fieldName, fieldType, sg)
	return f
}

// hidden declares a field that is left out of the merged field set.
func (f *fixture) hidden(sg, typeName, fieldName, fieldType string) *fixture {
	tail := f.node(sg, fieldType)
	if IsRootTypeName(typeName) {
		f.g.AddEdge(f.g.RootNode(RootTypeName(typeName)), tail, fieldName, false)
	} else {
		f.g.AddEdge(f.node(sg, typeName), tail, fieldName, false)
	}
	if !slices.Contains(f.typeNames, typeName) {
		f.typeNames = append(f.typeNames, typeName)
	}
	return f
}

func (f *fixture) key(sg, typeName, fieldSet string, resolvable bool) *fixture {
	f.node(sg, typeName).AddSatisfiedFieldSet(fieldSet)
	data := f.g.AddEntityDataNode(typeName)
	if resolvable {
		data.AddTargetSubgraphByFieldSet(fieldSet, sg)
	}
	return f
}

func (f *fixture) implements(sg, abstractName, concreteName string) *fixture {
	f.abstract[abstractName] = true
	f.g.AddEdge(f.node(sg, abstractName), f.node(sg, concreteName), concreteName, true)
	return f
}

func (f *fixture) build() *Graph {
	for _, typeName := range f.typeNames {
		f.g.InitializeNode(typeName, f.fieldsByTy[typeName])
	}
	return f.g
}
