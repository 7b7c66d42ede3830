// Package directive applies schema annotations (flatten, derive, filter,
// part extraction) to document data in a fixed, validated order.
package directive

import (
	"github.com/cockroachdb/errors"
)

// Kind names one directive family.
type Kind string

const (
	KindPart           Kind = "part-extraction"
	KindPattern        Kind = "pattern-collection"
	KindFlatten        Kind = "array-flatten"
	KindDeriveFrom     Kind = "derive-from"
	KindDeriveUnique   Kind = "derive-unique"
	KindFilter         Kind = "filter-expression"
	KindTemplateFormat Kind = "template-format"
	KindItemsTemplate  Kind = "items-template"
	KindTemplate       Kind = "template"
)

// knownKinds is the closed set an ordering must cover. Adding a directive
// kind here forces an explicit ordering decision in every strategy.
var knownKinds = []Kind{
	KindPart,
	KindPattern,
	KindFlatten,
	KindDeriveFrom,
	KindDeriveUnique,
	KindFilter,
	KindTemplateFormat,
	KindItemsTemplate,
	KindTemplate,
}

// Ordering is a total order over directive kinds. Construct through
// NewOrdering, which rejects any order that misses or repeats a kind.
type Ordering struct {
	name  string
	order []Kind
}

// NewOrdering validates that order lists every known directive kind
// exactly once.
func NewOrdering(name string, order []Kind) (Ordering, error) {
	if len(order) != len(knownKinds) {
		return Ordering{}, errors.Newf("ordering %q lists %d kinds, want %d", name, len(order), len(knownKinds))
	}
	seen := make(map[Kind]bool, len(order))
	for _, k := range order {
		if seen[k] {
			return Ordering{}, errors.Newf("ordering %q repeats kind %q", name, k)
		}
		seen[k] = true
	}
	for _, k := range knownKinds {
		if !seen[k] {
			return Ordering{}, errors.Newf("ordering %q misses kind %q", name, k)
		}
	}
	return Ordering{name: name, order: order}, nil
}

func (o Ordering) Name() string { return o.name }

// Kinds returns the processing order.
func (o Ordering) Kinds() []Kind { return o.order }

func mustOrdering(name string, order []Kind) Ordering {
	o, err := NewOrdering(name, order)
	if err != nil {
		panic(err)
	}
	return o
}

// DefaultOrdering is the canonical processing order.
var DefaultOrdering = mustOrdering("default", []Kind{
	KindPart,
	KindPattern,
	KindFlatten,
	KindDeriveFrom,
	KindDeriveUnique,
	KindFilter,
	KindTemplateFormat,
	KindItemsTemplate,
	KindTemplate,
})

// FilterFirstOrdering runs filters before structural rewrites, for
// schemas that filter raw values rather than flattened ones.
var FilterFirstOrdering = mustOrdering("filter-first", []Kind{
	KindPart,
	KindPattern,
	KindFilter,
	KindFlatten,
	KindDeriveFrom,
	KindDeriveUnique,
	KindTemplateFormat,
	KindItemsTemplate,
	KindTemplate,
})
