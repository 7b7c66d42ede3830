package directive

import (
	"github.com/cockroachdb/errors"
	"github.com/ohler55/ojg/jp"
)

// JSONPathFilter evaluates filter expressions as JSONPath queries.
type JSONPathFilter struct{}

// Apply compiles expr and runs it against value, returning the matched
// values as an array. A compile failure is a directive-fatal error.
func (JSONPathFilter) Apply(expr string, value any) (any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid filter expression %q", expr)
	}
	results := x.Get(value)
	if results == nil {
		return []any{}, nil
	}
	return []any(results), nil
}
