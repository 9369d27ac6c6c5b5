package resolvability

import "fmt"

// NodeResolutionData accumulates the fields of a node proven resolvable at
// one path.
type NodeResolutionData struct {
	TypeName string

	fields   *fieldDataSet
	resolved map[string]struct{}
}

func newNodeResolutionData(node *GraphNode) *NodeResolutionData {
	if node.fields == nil {
		panic(fmt.Sprintf("resolvability: node %q was never initialized", node.Name))
	}
	return &NodeResolutionData{
		TypeName: node.TypeName,
		fields:   node.fields,
		resolved: make(map[string]struct{}, node.fields.len()),
	}
}

// Add records fieldName as resolvable. Recording a field the type does not
// declare means the graph was built inconsistently and panics.
func (d *NodeResolutionData) Add(fieldName string) {
	if !d.fields.has(fieldName) {
		panic(fmt.Sprintf("resolvability: field %q is not declared on type %q", fieldName, d.TypeName))
	}
	d.resolved[fieldName] = struct{}{}
}

func (d *NodeResolutionData) IsResolved() bool {
	return len(d.resolved) == d.fields.len()
}

// UnresolvedFields returns the declared fields not yet recorded, in
// declaration order.
func (d *NodeResolutionData) UnresolvedFields() []*GraphFieldData {
	var out []*GraphFieldData
	for _, name := range d.fields.names {
		if _, ok := d.resolved[name]; ok {
			continue
		}
		out = append(out, d.fields.byName[name])
	}
	return out
}
