package language

import "github.com/vektah/gqlparser/v2/ast"

type (
	SchemaDocument          = ast.SchemaDocument
	SchemaDefinition        = ast.SchemaDefinition
	OperationTypeDefinition = ast.OperationTypeDefinition
	SelectionSet            = ast.SelectionSet
	Selection               = ast.Selection
	Field                   = ast.Field
	InlineFragment          = ast.InlineFragment
	Directive               = ast.Directive
	DirectiveList           = ast.DirectiveList
	Argument                = ast.Argument
	Value                   = ast.Value
	FieldDefinition         = ast.FieldDefinition
	Type                    = ast.Type
	Definition              = ast.Definition
	DefinitionList          = ast.DefinitionList
	Position                = ast.Position
)

type DefinitionKind = ast.DefinitionKind

type Operation = ast.Operation

type ValueKind = ast.ValueKind

const (
	Query        Operation = ast.Query
	Mutation     Operation = ast.Mutation
	Subscription Operation = ast.Subscription

	Object      DefinitionKind = ast.Object
	Interface   DefinitionKind = ast.Interface
	Union       DefinitionKind = ast.Union
	Scalar      DefinitionKind = ast.Scalar
	Enum        DefinitionKind = ast.Enum
	InputObject DefinitionKind = ast.InputObject

	BooleanValue ValueKind = ast.BooleanValue
	StringValue  ValueKind = ast.StringValue
)
