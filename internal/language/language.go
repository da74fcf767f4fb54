package language

import (
	"errors"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// ParseQuery parses an executable document. Syntax errors are returned as
// an ErrorList carrying the offending location.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, AsErrorList(err)
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, merging in the built-in prelude
// (scalars, @skip/@include/@deprecated and the introspection types).
func LoadSchema(name, source string) (*TypeSystem, error) {
	ts, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, AsErrorList(err)
	}
	return ts, nil
}

// Validate runs the standard validation rules of the document against ts.
func Validate(ts *TypeSystem, doc *QueryDocument) ErrorList {
	return validator.Validate(ts, doc)
}

// AsErrorList normalizes the error shapes returned by gqlparser.
func AsErrorList(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list gqlerror.List
	if errors.As(err, &list) {
		return list
	}
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return gqlerror.List{ge}
	}
	return gqlerror.List{gqlerror.Wrap(err)}
}
