package language

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseFieldSet parses the selection set of a @key "fields" argument, such as
// "id organization { id }".
func ParseFieldSet(fieldSet string) (SelectionSet, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: "{" + fieldSet + "}"})
	if err != nil {
		return nil, fmt.Errorf("invalid field set %q: %w", fieldSet, err)
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) != 0 {
		return nil, fmt.Errorf("invalid field set %q", fieldSet)
	}
	set := doc.Operations[0].SelectionSet
	if len(set) == 0 {
		return nil, fmt.Errorf("field set %q is empty", fieldSet)
	}
	return set, nil
}

// NormalizeFieldSet renders a field set in its canonical single-line form so
// that equivalent keys compare equal: aliases and commas are dropped and
// whitespace is collapsed.
func NormalizeFieldSet(fieldSet string) (string, error) {
	set, err := ParseFieldSet(fieldSet)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := writeSelectionSet(&b, set); err != nil {
		return "", fmt.Errorf("invalid field set %q: %w", fieldSet, err)
	}
	return b.String(), nil
}

func writeSelectionSet(b *strings.Builder, set SelectionSet) error {
	for i, sel := range set {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s := sel.(type) {
		case *Field:
			b.WriteString(s.Name)
			if len(s.SelectionSet) == 0 {
				continue
			}
			b.WriteString(" { ")
			if err := writeSelectionSet(b, s.SelectionSet); err != nil {
				return err
			}
			b.WriteString(" }")
		case *InlineFragment:
			b.WriteString("... on ")
			b.WriteString(s.TypeCondition)
			b.WriteString(" { ")
			if err := writeSelectionSet(b, s.SelectionSet); err != nil {
				return err
			}
			b.WriteString(" }")
		default:
			return fmt.Errorf("unsupported selection %T", sel)
		}
	}
	return nil
}
