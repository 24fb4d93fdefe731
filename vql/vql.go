// Package vql implements the Vireo Query Language, a tiny expression language
// that parses into a filter.ComponentFilter. It gives tooling and debug
// surfaces a text form of the filters the Search API builds in code, e.g.
// CONTAINS(Health) & !CONTAINS(Frozen).
package vql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/types"
)

type vqlOperator int

const (
	opAnd vqlOperator = iota
	opOr
)

var operatorMap = map[string]vqlOperator{"&": opAnd, "|": opOr}

// Capture basically tells the parser library how to transform a string token
// that's parsed into the operator type.
func (o *vqlOperator) Capture(s []string) error {
	if len(s) == 0 {
		return eris.New("invalid operator")
	}
	operator, ok := operatorMap[s[0]]
	if !ok {
		return eris.New("invalid operator")
	}
	*o = operator
	return nil
}

type vqlComponent struct {
	Name string `@Ident`
}

type vqlAll struct{}

func (a *vqlAll) Capture(values []string) error {
	if values[0] == "ALL" && values[1] == "(" && values[2] == ")" {
		*a = vqlAll{}
	}
	return nil
}

type vqlNot struct {
	SubExpression *vqlValue `"!" @@`
}

type vqlExact struct {
	Components []*vqlComponent `"EXACT""(" (@@",")* @@ ")"`
}

type vqlContains struct {
	Components []*vqlComponent `"CONTAINS" "(" (@@",")* @@ ")"`
}

type vqlValue struct {
	All           *vqlAll      `@("ALL" "(" ")")`
	Exact         *vqlExact    `| @@`
	Contains      *vqlContains `| @@`
	Not           *vqlNot      `| @@`
	Subexpression *vqlTerm     `| "(" @@ ")"`
}

type vqlFactor struct {
	Base *vqlValue `@@`
}

type vqlOpFactor struct {
	Operator vqlOperator `@("&" | "|")`
	Factor   *vqlFactor  `@@`
}

type vqlTerm struct {
	Left  *vqlFactor     `@@`
	Right []*vqlOpFactor `@@*`
}

// Display

func (o vqlOperator) String() string {
	switch o {
	case opAnd:
		return "&"
	case opOr:
		return "|"
	}
	panic("unsupported operator")
}

func (a *vqlAll) String() string {
	return "ALL()"
}

func (e *vqlExact) String() string {
	parameters := ""
	for i, comp := range e.Components {
		parameters += comp.Name
		if i < len(e.Components)-1 {
			parameters += ", "
		}
	}
	return "EXACT(" + parameters + ")"
}

func (e *vqlContains) String() string {
	parameters := ""
	for i, comp := range e.Components {
		parameters += comp.Name
		if i < len(e.Components)-1 {
			parameters += ", "
		}
	}
	return "CONTAINS(" + parameters + ")"
}

func (v *vqlValue) String() string {
	//nolint: gocritic,nestif // its ok.
	if v.Exact != nil {
		return v.Exact.String()
	} else if v.Contains != nil {
		return v.Contains.String()
	} else if v.All != nil {
		return v.All.String()
	} else if v.Not != nil {
		return "!(" + v.Not.SubExpression.String() + ")"
	} else if v.Subexpression != nil {
		return "(" + v.Subexpression.String() + ")"
	} else {
		panic("logic error displaying VQL ast. Check the code in vql.go")
	}
}

func (f *vqlFactor) String() string {
	out := f.Base.String()
	return out
}

func (o *vqlOpFactor) String() string {
	return fmt.Sprintf("%s %s", o.Operator, o.Factor)
}

func (t *vqlTerm) String() string {
	out := []string{t.Left.String()}
	for _, r := range t.Right {
		out = append(out, r.String())
	}
	return strings.Join(out, " ")
}

var internalVQLParser = participle.MustBuild[vqlTerm]()

// TODO: the sum type is represented as a product type. There is a case where multiple
// properties are filled out. The parser should prevent this from happening but for
// safety this should eventually be checked.
func valueToComponentFilter(value *vqlValue, stringToComponent func(string) (types.ComponentMetadata, error)) (
	filter.ComponentFilter, error,
) {
	if value.Not != nil { //nolint:gocritic,nestif // its fine.
		resultFilter, err := valueToComponentFilter(value.Not.SubExpression, stringToComponent)
		if err != nil {
			return nil, err
		}
		return filter.Not(resultFilter), nil
	} else if value.Exact != nil {
		if len(value.Exact.Components) == 0 {
			return nil, eris.New("EXACT cannot have zero parameters")
		}
		components := make([]types.Component, 0, len(value.Exact.Components))
		for _, componentName := range value.Exact.Components {
			comp, err := stringToComponent(componentName.Name)
			if err != nil {
				return nil, eris.Wrap(err, "")
			}
			components = append(components, comp)
		}
		return filter.Exact(components...), nil
	} else if value.All != nil {
		return filter.All(), nil
	} else if value.Contains != nil {
		if len(value.Contains.Components) == 0 {
			return nil, eris.New("CONTAINS cannot have zero parameters")
		}
		components := make([]types.Component, 0, len(value.Contains.Components))
		for _, componentName := range value.Contains.Components {
			comp, err := stringToComponent(componentName.Name)
			if err != nil {
				return nil, eris.Wrap(err, "")
			}
			components = append(components, comp)
		}
		return filter.Contains(components...), nil
	} else if value.Subexpression != nil {
		return termToComponentFilter(value.Subexpression, stringToComponent)
	} else {
		return nil, eris.New("unknown error during conversion from VQL AST to ComponentFilter")
	}
}

func factorToComponentFilter(factor *vqlFactor, stringToComponent func(string) (types.ComponentMetadata, error)) (
	filter.ComponentFilter, error,
) {
	return valueToComponentFilter(factor.Base, stringToComponent)
}

func opFactorToComponentFilter(
	opFactor *vqlOpFactor,
	stringToComponent func(string) (types.ComponentMetadata, error),
) (*vqlOperator, filter.ComponentFilter, error) {
	resultFilter, err := factorToComponentFilter(opFactor.Factor, stringToComponent)
	if err != nil {
		return nil, nil, err
	}
	return &opFactor.Operator, resultFilter, nil
}

func termToComponentFilter(
	term *vqlTerm, stringToComponent func(string) (types.ComponentMetadata, error),
) (filter.ComponentFilter, error) {
	if term.Left == nil {
		return nil, eris.New("not enough values in expression")
	}
	acc, err := factorToComponentFilter(term.Left, stringToComponent)
	if err != nil {
		return nil, err
	}
	for _, opFactor := range term.Right {
		operator, resultFilter, err := opFactorToComponentFilter(opFactor, stringToComponent)
		if err != nil {
			return nil, err
		}
		switch *operator {
		case opAnd:
			acc = filter.And(acc, resultFilter)
		case opOr:
			acc = filter.Or(acc, resultFilter)
		default:
			return nil, eris.New("invalid operator")
		}
	}
	return acc, nil
}

// Parse turns a VQL expression into the ComponentFilter it denotes.
// stringToComponent resolves component names against the world's registered set,
// typically World.GetComponentByName.
func Parse(
	vqlText string, stringToComponent func(string) (types.ComponentMetadata, error),
) (filter.ComponentFilter, error) {
	term, err := internalVQLParser.ParseString("", vqlText)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	resultFilter, err := termToComponentFilter(term, stringToComponent)
	if err != nil {
		return nil, err
	}
	return resultFilter, nil
}

type QueryRequest struct {
	VQL string
}

type QueryResponse struct {
	ID   types.EntityID    `json:"id"`
	Data []json.RawMessage `json:"data"`
}
