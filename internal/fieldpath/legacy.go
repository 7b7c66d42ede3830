package fieldpath

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Lookup is the legacy dot-notation resolver kept for bracket-free paths.
// It applies the same grammar checks as Parse (minus bracket handling) and
// agrees with Get on every bracket-free input.
func Lookup(data any, dotted string) (any, error) {
	if dotted == "" {
		return nil, errors.Wrap(ErrInvalidPath, "empty path")
	}
	parts := strings.Split(dotted, ".")
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, errors.Wrapf(ErrInvalidPath, "empty segment in %q", dotted)
		}
		if !validIdentifier(part) {
			return nil, errors.Wrapf(ErrInvalidPath, "invalid identifier %q", part)
		}
		if _, dup := seen[part]; dup {
			return nil, errors.Wrapf(ErrCircularPath, "segment %q repeats in %q", part, dotted)
		}
		seen[part] = struct{}{}
	}

	cur := data
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidType, "segment %q requires an object, got %T", part, cur)
		}
		v, ok := obj[part]
		if !ok {
			return nil, errors.Wrapf(ErrFieldNotFound, "no field %q", part)
		}
		cur = v
	}
	return cur, nil
}
