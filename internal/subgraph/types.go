package subgraph

import language "github.com/hanpama/fedgraph/internal/language"

type Kind string

const (
	KindObject      Kind = "OBJECT"
	KindInterface   Kind = "INTERFACE"
	KindUnion       Kind = "UNION"
	KindEnum        Kind = "ENUM"
	KindScalar      Kind = "SCALAR"
	KindInputObject Kind = "INPUT_OBJECT"
)

var kindByDefinitionKind = map[language.DefinitionKind]Kind{
	language.Object:      KindObject,
	language.Interface:   KindInterface,
	language.Union:       KindUnion,
	language.Enum:        KindEnum,
	language.Scalar:      KindScalar,
	language.InputObject: KindInputObject,
}

var builtinScalars = []string{"String", "Int", "Float", "Boolean", "ID"}

// Subgraph is the normalized view of one subgraph schema: root types carry
// their canonical names and federation-internal definitions are removed.
type Subgraph struct {
	Name     string
	FilePath string
	// Types are the declared types in declaration order. Built-in scalars are
	// resolvable through Type but not listed.
	Types []*Type

	types map[string]*Type
}

// Type returns the named type, or nil.
func (s *Subgraph) Type(name string) *Type { return s.types[name] }

// Satisfies reports whether the subgraph's copy of typeName can provide the
// key field set: every selected field is declared and not @external, and
// nested selections are satisfied by the field's type.
func (s *Subgraph) Satisfies(typeName, fieldSet string) bool {
	set, err := language.ParseFieldSet(fieldSet)
	if err != nil {
		return false
	}
	return s.satisfies(s.types[typeName], set)
}

func (s *Subgraph) satisfies(t *Type, set language.SelectionSet) bool {
	if t == nil {
		return false
	}
	for _, sel := range set {
		sf, ok := sel.(*language.Field)
		if !ok {
			return false
		}
		f := t.fields[sf.Name]
		if f == nil || f.External {
			return false
		}
		if len(sf.SelectionSet) > 0 && !s.satisfies(s.types[f.TypeName], sf.SelectionSet) {
			return false
		}
	}
	return true
}

type Type struct {
	Name string
	Kind Kind
	// Fields are the fields of objects and interfaces in declaration order.
	Fields []*Field
	// Interfaces are the interfaces an object or interface implements.
	Interfaces []string
	// PossibleTypes are the object types of this subgraph that implement an
	// interface or are members of a union.
	PossibleTypes []string
	Keys          []*Key
	Inaccessible  bool
	BuiltIn       bool
	// Extension is set when the subgraph only extends the type (extend
	// keyword) or marks it @extends. @external key fields of an extension are
	// provided by the subgraph.
	Extension bool
	// InterfaceObject marks an object type standing in for an entity
	// interface declared by other subgraphs.
	InterfaceObject bool

	fields   map[string]*Field
	position *language.Position
}

func (t *Type) Field(name string) *Field { return t.fields[name] }

func (t *Type) IsLeaf() bool { return t.Kind == KindScalar || t.Kind == KindEnum }

func (t *Type) IsAbstract() bool { return t.Kind == KindInterface || t.Kind == KindUnion }

// IsEntity reports whether the type declares at least one @key. Interfaces
// with a @key are entity interfaces.
func (t *Type) IsEntity() bool { return len(t.Keys) > 0 }

// Resolves reports whether the subgraph returns f when it returns the type.
// @external only withholds a field on entities and extensions; a plain type
// still returns its @external fields, but they never satisfy a key.
func (t *Type) Resolves(f *Field) bool {
	return !f.External || !(t.IsEntity() || t.Extension)
}

type Field struct {
	Name string
	// TypeName is the named type of the field with list and non-null
	// wrappers removed.
	TypeName string
	// External marks an @external field. It is declared for reference only
	// and cannot be resolved by this subgraph. Key fields of extensions are
	// never external.
	External     bool
	Inaccessible bool

	position *language.Position
}

// Key is a normalized @key directive.
type Key struct {
	FieldSet   string
	Resolvable bool

	position *language.Position
}
