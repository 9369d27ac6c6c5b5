package resolvability

import "fmt"

// EntityAncestorData describes the entity a failing path descends from and
// which of its keys lead where.
type EntityAncestorData struct {
	TypeName                      string
	SubgraphName                  string
	SatisfiedFieldSets            []string
	FieldSetsByTargetSubgraphName map[string][]string
}

// entityFailure is the first unresolvable entity path found for a root field.
type entityFailure struct {
	ancestor EntityAncestorData
	nodeName NodeName
	// parentFieldPaths are the shared paths leading from the root field to
	// the failing entity, outermost first.
	parentFieldPaths []FieldPath
	// unresolvedPaths is the union of the unresolved relative paths of every
	// occurrence of the shared path.
	unresolvedPaths []FieldPath
	occurrences     []*entityResolution
}

// validateEntities judges every entity path of one level, then recurses into
// the entities nested below them. A path reached from several copies of the
// entity is resolvable if any one copy resolves it. The first failing path
// ends validation of the root field.
func (v *validation) validateEntities(paths *entityPathIndex, level int) *entityFailure {
	if level > v.maxDepth {
		v.exceedDepth(string(paths.paths[0]))
		return nil
	}
	nestedBySharedPath := make(map[FieldPath]*entityPathIndex)
	var nestedOrder []FieldPath
	for _, sharedPath := range paths.paths {
		var failed []*entityResolution
		var resolved bool
		nested := newEntityPathIndex()
		for _, nodeName := range paths.nodeNames[sharedPath].values() {
			node := v.graph.nodeByNodeName[nodeName]
			if node == nil {
				panic(fmt.Sprintf("resolvability: entity node %q is not part of the graph", nodeName))
			}
			res := v.resolveEntity(node)
			if _, ok := v.expanded[nodeName]; !ok {
				v.expanded[nodeName] = struct{}{}
				nested.merge(res.nested)
			}
			if res.isResolved() {
				resolved = true
				break
			}
			failed = append(failed, res)
		}
		if !resolved {
			return v.newEntityFailure(sharedPath, failed)
		}
		if nested.len() > 0 {
			nestedBySharedPath[sharedPath] = nested
			nestedOrder = append(nestedOrder, sharedPath)
		}
	}
	for _, sharedPath := range nestedOrder {
		failure := v.validateEntities(nestedBySharedPath[sharedPath], level+1)
		if failure == nil {
			continue
		}
		failure.parentFieldPaths = append([]FieldPath{sharedPath}, failure.parentFieldPaths...)
		return failure
	}
	return nil
}

func (v *validation) newEntityFailure(sharedPath FieldPath, occurrences []*entityResolution) *entityFailure {
	first := occurrences[0].node
	ancestor := EntityAncestorData{
		TypeName:           first.TypeName,
		SubgraphName:       first.SubgraphName,
		SatisfiedFieldSets: first.SatisfiedFieldSets(),
	}
	if data := v.graph.entityDataNodes[first.TypeName]; data != nil {
		ancestor.FieldSetsByTargetSubgraphName = data.FieldSetsByTargetSubgraphName()
	}
	unresolved := newOrderedSet[FieldPath]()
	for _, res := range occurrences {
		for _, path := range res.unresolvedPaths.values() {
			unresolved.add(path)
		}
	}
	return &entityFailure{
		ancestor:         ancestor,
		nodeName:         first.Name,
		parentFieldPaths: []FieldPath{sharedPath},
		unresolvedPaths:  append([]FieldPath(nil), unresolved.values()...),
		occurrences:      occurrences,
	}
}

// errors renders the failure. For each path, the first occurrence that left
// it unresolved supplies the missing fields.
func (f *entityFailure) errors(rootField RootFieldData) []error {
	prefix := pathFromRoot(f.parentFieldPaths)
	var out []error
	for _, path := range f.unresolvedPaths {
		for _, res := range f.occurrences {
			data, ok := res.dataByPath[path]
			if !ok || data.IsResolved() {
				continue
			}
			ancestor := f.ancestor
			out = append(out, unresolvableFieldErrors(rootField, prefix+string(path), data, &ancestor)...)
			break
		}
	}
	return out
}
