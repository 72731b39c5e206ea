package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// FieldType describes a field usable in a where expression.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
)

// Fields defines the identifiers a where expression may reference.
type Fields map[string]FieldType

// CharacterFields are the identifiers available to "character where" rules.
var CharacterFields = Fields{
	"name":     FieldString,
	"rank":     FieldInt,
	"member":   FieldString,
	"nickname": FieldString,
}

// UnitFields are the identifiers available to "unit where" rules.
var UnitFields = Fields{
	"name": FieldString,
	"rank": FieldInt,
}

// ParseExpr parses and type-checks an AIP-160 filter expression. A blank expression yields nil,
// which Evaluate treats as always true.
func ParseExpr(filterStr string, fields Fields) (*expr.Expr, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}

	decls, err := declarations(fields)
	if err != nil {
		return nil, err
	}

	f, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	return f.CheckedExpr.Expr, nil
}

func declarations(fields Fields) (*filtering.Declarations, error) {
	decls := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for name, kind := range fields {
		switch kind {
		case FieldString:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeString))
		case FieldInt:
			decls = append(decls, filtering.DeclareIdent(name, filtering.TypeInt))
		default:
			return nil, fmt.Errorf("unsupported field type for %s", name)
		}
	}
	return filtering.NewDeclarations(decls...)
}
