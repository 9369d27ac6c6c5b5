package subgraph

import (
	"fmt"

	language "github.com/hanpama/fedgraph/internal/language"
)

type Violation struct {
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type ValidationError []*Violation

func (e ValidationError) Error() string {
	msg := "violations found:\n"
	for _, v := range e {
		line := "- " + v.Message
		if v.File != "" {
			line += fmt.Sprintf(" %s:%d:%d", v.File, v.Line, v.Column)
		}
		msg += line + "\n"
	}
	return msg
}

func violationWithPosition(message string, pos *language.Position) *Violation {
	v := &Violation{Message: message}
	if pos == nil {
		return v
	}
	if pos.Src != nil {
		v.File = pos.Src.Name
	}
	v.Line = pos.Line
	v.Column = pos.Column
	return v
}

func violationDuplicateField(fieldName, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Duplicate field %q found in type %q", fieldName, typeName),
		pos,
	)
}

func violationTypeNotFound(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q not found in definitions", typeName),
		pos,
	)
}

func violationKindMismatch(typeName string, kind, extKind Kind, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Type %q is declared as %s but extended as %s", typeName, kind, extKind),
		pos,
	)
}

func violationInvalidKey(typeName, fieldSet string, err error, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Invalid @key(fields: %q) on type %q: %v", fieldSet, typeName, err),
		pos,
	)
}

func violationKeyFieldNotFound(typeName, fieldSet, fieldName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("@key(fields: %q) on type %q references undeclared field %q", fieldSet, typeName, fieldName),
		pos,
	)
}

func violationKeyOnUnsupportedKind(typeName string, kind Kind, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("@key is only supported on object and interface types, found on %s %q", kind, typeName),
		pos,
	)
}

func violationInterfaceObjectKind(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("@interfaceObject is only supported on object types, found on %q", typeName),
		pos,
	)
}

func violationInterfaceObjectWithoutKey(typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("@interfaceObject type %q must declare a @key", typeName),
		pos,
	)
}

func violationDirectiveArgument(directive, arg, want string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Argument '%s' of @%s must be %s", arg, directive, want),
		pos,
	)
}

func violationRootTypeNotObject(operation language.Operation, typeName string, pos *language.Position) *Violation {
	return violationWithPosition(
		fmt.Sprintf("Root %s type %q must be an object type", operation, typeName),
		pos,
	)
}
