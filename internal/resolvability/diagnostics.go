package resolvability

import (
	"fmt"
	"strings"
)

// RootFieldData identifies the root field a diagnostic was found under.
type RootFieldData struct {
	TypeName      RootTypeName
	FieldName     string
	Coords        string
	SubgraphNames []string
}

func newRootFieldData(typeName RootTypeName, fieldName string, subgraphNames []string) RootFieldData {
	return RootFieldData{
		TypeName:      typeName,
		FieldName:     fieldName,
		Coords:        string(typeName) + "." + fieldName,
		SubgraphNames: subgraphNames,
	}
}

// UnresolvableFieldError reports a field that no routing of subgraph fetches
// can resolve at FieldPath.
type UnresolvableFieldError struct {
	RootField      RootFieldData
	FieldName      string
	TypeName       string
	FieldPath      string
	SubgraphNames  []string
	SelectionSet   string
	Reasons        []string
	EntityAncestor *EntityAncestorData
}

func (e *UnresolvableFieldError) Error() string {
	return fmt.Sprintf("The field %q is unresolvable at the following path:\n%s\nThis is because:\n - %s",
		e.FieldName, e.SelectionSet, strings.Join(e.Reasons, "\n - "))
}

// DepthLimitError reports a path that was not walked because it exceeds the
// configured maximum depth.
type DepthLimitError struct {
	Path     string
	MaxDepth int
}

func (e *DepthLimitError) Error() string {
	return fmt.Sprintf("The field path %q exceeds the maximum resolvability depth of %d.", e.Path, e.MaxDepth)
}

func unresolvableFieldErrors(rootField RootFieldData, path string, data *NodeResolutionData, ancestor *EntityAncestorData) []error {
	segments := SelectionSetSegments(path)
	var out []error
	for _, field := range data.UnresolvedFields() {
		e := &UnresolvableFieldError{
			RootField:      rootField,
			FieldName:      field.Name,
			TypeName:       data.TypeName,
			FieldPath:      path,
			SubgraphNames:  field.SubgraphNames,
			SelectionSet:   RenderSelectionSet(segments, field),
			EntityAncestor: ancestor,
		}
		e.Reasons = ResolvabilityReasons(rootField, data.TypeName, field, ancestor)
		out = append(out, e)
	}
	return out
}

// SelectionSetSegments splits a field path on its separating periods. The
// periods of a "... on Type" marker are kept with the marker.
func SelectionSetSegments(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); {
		if path[i] != '.' {
			i++
			continue
		}
		run := 1
		for i+run < len(path) && path[i+run] == '.' {
			run++
		}
		if i == start && run == 3 {
			// A marker opening the path or a segment.
			i += run
			continue
		}
		if i > start {
			segments = append(segments, path[start:i])
		}
		// The first period separates; any further periods open a marker.
		start = i + 1
		i += run
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}

// RenderSelectionSet renders the segments as nested selections ending in
// field. Non-leaf fields are rendered with an elided selection set.
func RenderSelectionSet(segments []string, field *GraphFieldData) string {
	var b strings.Builder
	for depth, segment := range segments {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(segment)
		b.WriteString(" {\n")
	}
	b.WriteString(strings.Repeat("  ", len(segments)))
	b.WriteString(field.Name)
	if !field.IsLeaf {
		b.WriteString(" { ... }")
	}
	b.WriteString("\n")
	for depth := len(segments) - 1; depth >= 0; depth-- {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("}\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ResolvabilityReasons explains why field of typeName cannot be resolved
// below rootField.
func ResolvabilityReasons(rootField RootFieldData, typeName string, field *GraphFieldData, ancestor *EntityAncestorData) []string {
	coords := typeName + "." + field.Name
	reasons := []string{
		fmt.Sprintf("The root type field %q is defined in the following %s.",
			rootField.Coords, quotedSubgraphs(rootField.SubgraphNames)),
		fmt.Sprintf("However, %q is only defined in the following %s.",
			coords, quotedSubgraphs(field.SubgraphNames)),
	}
	if ancestor == nil {
		return append(reasons, fmt.Sprintf(
			"The type %q is not an entity, and no entity ancestor on this path can be used to reach those subgraphs.", typeName))
	}
	satisfied := make(map[string]struct{}, len(ancestor.SatisfiedFieldSets))
	for _, fs := range ancestor.SatisfiedFieldSets {
		satisfied[fs] = struct{}{}
	}
	intersects := false
	for _, subgraphName := range sortedCopy(field.SubgraphNames) {
		if subgraphName == ancestor.SubgraphName {
			continue
		}
		fieldSets := ancestor.FieldSetsByTargetSubgraphName[subgraphName]
		if len(fieldSets) == 0 {
			continue
		}
		intersects = true
		for _, fs := range sortedCopy(fieldSets) {
			if _, ok := satisfied[fs]; ok {
				reasons = append(reasons, fmt.Sprintf(
					"The entity ancestor %q in subgraph %q satisfies the key field set %q to access subgraph %q.",
					ancestor.TypeName, ancestor.SubgraphName, fs, subgraphName))
				continue
			}
			reasons = append(reasons, fmt.Sprintf(
				"The entity ancestor %q in subgraph %q does not satisfy the key field set %q to access subgraph %q.",
				ancestor.TypeName, ancestor.SubgraphName, fs, subgraphName))
		}
	}
	if !intersects {
		reasons = append(reasons, fmt.Sprintf(
			"The entity ancestor %q in subgraph %q has no resolvable key field set that targets a subgraph that defines %q.",
			ancestor.TypeName, ancestor.SubgraphName, coords))
	}
	return append(reasons, fmt.Sprintf(
		"The type %q has no other accessible entity ancestor that provides a shared route to %q.",
		ancestor.TypeName, coords))
}

func quotedSubgraphs(names []string) string {
	sorted := sortedCopy(names)
	quoted := make([]string, len(sorted))
	for i, name := range sorted {
		quoted[i] = `"` + name + `"`
	}
	noun := "subgraph"
	if len(sorted) != 1 {
		noun = "subgraphs"
	}
	return noun + ": " + strings.Join(quoted, ", ")
}
