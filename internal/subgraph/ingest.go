package subgraph

import (
	"fmt"
	"strings"

	language "github.com/hanpama/fedgraph/internal/language"
)

var rootTypeNameByOperation = map[language.Operation]string{
	language.Query:        "Query",
	language.Mutation:     "Mutation",
	language.Subscription: "Subscription",
}

// federation-internal root fields are served by every subgraph and are not
// part of the client-facing schema.
var internalRootFields = map[string]bool{"_entities": true, "_service": true}

type ingester struct {
	sg         *Subgraph
	renames    map[string]string
	violations []*Violation
}

// Ingest parses the SDL of one subgraph and normalizes it. Syntax errors are
// returned as is; semantic problems are collected into a ValidationError.
func Ingest(meta *Metadata, sdl string) (*Subgraph, error) {
	doc, err := language.ParseSchema(meta.FilePath, sdl)
	if err != nil {
		return nil, fmt.Errorf("parse subgraph %q: %w", meta.Name, err)
	}
	in := &ingester{
		sg: &Subgraph{
			Name:     meta.Name,
			FilePath: meta.FilePath,
			types:    make(map[string]*Type),
		},
		renames: make(map[string]string),
	}
	for _, name := range builtinScalars {
		in.sg.types[name] = &Type{Name: name, Kind: KindScalar, BuiltIn: true}
	}

	in.collectRootOperations(doc)
	for _, def := range doc.Definitions {
		in.collectDefinition(def, false)
	}
	for _, def := range doc.Extensions {
		in.collectDefinition(def, true)
	}
	in.checkRootOperations(doc)
	in.resolveReferences()
	in.resolveKeys()
	in.populatePossibleTypes()

	if len(in.violations) > 0 {
		return nil, ValidationError(in.violations)
	}
	return in.sg, nil
}

func (in *ingester) report(v *Violation) { in.violations = append(in.violations, v) }

// collectRootOperations maps custom root type names such as RootQuery to
// their canonical names.
func (in *ingester) collectRootOperations(doc *language.SchemaDocument) {
	for _, list := range [][]*language.SchemaDefinition{doc.Schema, doc.SchemaExtension} {
		for _, sd := range list {
			for _, ot := range sd.OperationTypes {
				canonical := rootTypeNameByOperation[ot.Operation]
				if canonical != "" && ot.Type != canonical {
					in.renames[ot.Type] = canonical
				}
			}
		}
	}
}

func (in *ingester) checkRootOperations(doc *language.SchemaDocument) {
	for _, list := range [][]*language.SchemaDefinition{doc.Schema, doc.SchemaExtension} {
		for _, sd := range list {
			for _, ot := range sd.OperationTypes {
				t := in.sg.types[in.rename(ot.Type)]
				if t == nil {
					in.report(violationTypeNotFound(ot.Type, ot.Position))
					continue
				}
				if t.Kind != KindObject {
					in.report(violationRootTypeNotObject(ot.Operation, ot.Type, ot.Position))
				}
			}
		}
	}
}

func (in *ingester) rename(name string) string {
	if canonical, ok := in.renames[name]; ok {
		return canonical
	}
	return name
}

func isInternalTypeName(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, "link__") || strings.HasPrefix(name, "federation__")
}

// collectDefinition registers a definition or extension. Extensions of types
// the subgraph never declares, common with @key entities, create the type
// and mark it as an extension.
func (in *ingester) collectDefinition(def *language.Definition, extension bool) {
	name := in.rename(def.Name)
	if isInternalTypeName(name) {
		return
	}
	kind, ok := kindByDefinitionKind[def.Kind]
	if !ok {
		return
	}
	t, ok := in.sg.types[name]
	switch {
	case ok && t.BuiltIn:
		return
	case ok && t.Kind != kind:
		in.report(violationKindMismatch(name, t.Kind, kind, def.Position))
		return
	case !ok:
		t = &Type{Name: name, Kind: kind, Extension: extension, fields: make(map[string]*Field), position: def.Position}
		in.sg.types[name] = t
		in.sg.Types = append(in.sg.Types, t)
	}

	typeExternal := def.Directives.ForName("external") != nil
	if def.Directives.ForName("inaccessible") != nil {
		t.Inaccessible = true
	}
	if def.Directives.ForName("extends") != nil {
		t.Extension = true
	}
	if def.Directives.ForName("interfaceObject") != nil {
		if kind != KindObject {
			in.report(violationInterfaceObjectKind(name, def.Position))
		} else {
			t.InterfaceObject = true
		}
	}
	for _, iface := range def.Interfaces {
		t.Interfaces = appendUnique(t.Interfaces, in.rename(iface))
	}
	if kind == KindUnion {
		for _, member := range def.Types {
			t.PossibleTypes = appendUnique(t.PossibleTypes, in.rename(member))
		}
	}
	for _, d := range def.Directives {
		if d.Name == "key" {
			in.collectKey(t, d)
		}
	}
	if kind != KindObject && kind != KindInterface {
		return
	}
	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		if name == rootTypeNameByOperation[language.Query] && internalRootFields[fd.Name] {
			continue
		}
		if _, dup := t.fields[fd.Name]; dup {
			in.report(violationDuplicateField(fd.Name, name, fd.Position))
			continue
		}
		f := &Field{
			Name:         fd.Name,
			TypeName:     in.rename(fd.Type.Name()),
			External:     typeExternal || fd.Directives.ForName("external") != nil,
			Inaccessible: fd.Directives.ForName("inaccessible") != nil,
			position:     fd.Position,
		}
		t.fields[f.Name] = f
		t.Fields = append(t.Fields, f)
	}
}

func (in *ingester) collectKey(t *Type, d *language.Directive) {
	fields := d.Arguments.ForName("fields")
	if fields == nil || fields.Value == nil || fields.Value.Kind != language.StringValue {
		in.report(violationDirectiveArgument("key", "fields", "a string", d.Position))
		return
	}
	resolvable := true
	if arg := d.Arguments.ForName("resolvable"); arg != nil && arg.Value != nil {
		if arg.Value.Kind != language.BooleanValue {
			in.report(violationDirectiveArgument("key", "resolvable", "a boolean", d.Position))
			return
		}
		resolvable = arg.Value.Raw == "true"
	}
	t.Keys = append(t.Keys, &Key{FieldSet: fields.Value.Raw, Resolvable: resolvable, position: d.Position})
}

func (in *ingester) resolveReferences() {
	for _, t := range in.sg.Types {
		for _, f := range t.Fields {
			if in.sg.types[f.TypeName] == nil {
				in.report(violationTypeNotFound(f.TypeName, f.position))
			}
		}
	}
}

// resolveKeys normalizes key field sets and validates the fields they select.
// On extensions, the selected fields are provided and lose @external.
// Duplicate keys collapse into one.
func (in *ingester) resolveKeys() {
	for _, t := range in.sg.Types {
		if t.InterfaceObject && len(t.Keys) == 0 {
			in.report(violationInterfaceObjectWithoutKey(t.Name, t.position))
		}
		if len(t.Keys) == 0 {
			continue
		}
		if t.Kind != KindObject && t.Kind != KindInterface {
			in.report(violationKeyOnUnsupportedKind(t.Name, t.Kind, t.position))
			continue
		}
		keys := t.Keys
		t.Keys = nil
		seen := make(map[string]*Key)
		for _, key := range keys {
			pos := key.position
			set, err := language.ParseFieldSet(key.FieldSet)
			if err != nil {
				in.report(violationInvalidKey(t.Name, key.FieldSet, err, pos))
				continue
			}
			normalized, err := language.NormalizeFieldSet(key.FieldSet)
			if err != nil {
				in.report(violationInvalidKey(t.Name, key.FieldSet, err, pos))
				continue
			}
			if !in.checkKeyFields(t, t, key.FieldSet, set, pos) {
				continue
			}
			if prev, ok := seen[normalized]; ok {
				prev.Resolvable = prev.Resolvable || key.Resolvable
				continue
			}
			key.FieldSet = normalized
			seen[normalized] = key
			t.Keys = append(t.Keys, key)
		}
	}
}

// checkKeyFields reports whether every field the key selects on parent, at
// any depth, is declared.
func (in *ingester) checkKeyFields(entity, parent *Type, fieldSet string, set language.SelectionSet, pos *language.Position) bool {
	valid := true
	for _, sel := range set {
		sf, ok := sel.(*language.Field)
		if !ok {
			continue
		}
		f := parent.fields[sf.Name]
		if f == nil {
			name := sf.Name
			if parent != entity {
				name = parent.Name + "." + sf.Name
			}
			in.report(violationKeyFieldNotFound(entity.Name, fieldSet, name, pos))
			valid = false
			continue
		}
		if entity.Extension {
			f.External = false
		}
		if len(sf.SelectionSet) == 0 {
			continue
		}
		child := in.sg.types[f.TypeName]
		if child == nil || (child.Kind != KindObject && child.Kind != KindInterface) {
			in.report(violationInvalidKey(entity.Name, fieldSet, fmt.Errorf("field %q has no selectable fields", sf.Name), pos))
			valid = false
			continue
		}
		valid = in.checkKeyFields(entity, child, fieldSet, sf.SelectionSet, pos) && valid
	}
	return valid
}

func (in *ingester) populatePossibleTypes() {
	for _, t := range in.sg.Types {
		if t.Kind != KindObject {
			continue
		}
		for _, name := range t.Interfaces {
			iface := in.sg.types[name]
			if iface == nil {
				in.report(violationTypeNotFound(name, t.position))
				continue
			}
			if iface.Kind == KindInterface {
				iface.PossibleTypes = appendUnique(iface.PossibleTypes, t.Name)
			}
		}
	}
	for _, t := range in.sg.Types {
		if t.Kind != KindUnion {
			continue
		}
		members := t.PossibleTypes
		t.PossibleTypes = nil
		for _, name := range members {
			member := in.sg.types[name]
			if member == nil {
				in.report(violationTypeNotFound(name, t.position))
				continue
			}
			t.PossibleTypes = append(t.PossibleTypes, name)
		}
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
