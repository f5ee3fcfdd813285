package export

import (
	"strconv"
)

// Entry is one leaf of a flattened payload.
type Entry struct {
	Key   string
	Value any
}

type FlattenOption func(*walker)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) FlattenOption {
	return func(w *walker) {
		if depth > 0 {
			w.maxDepth = depth
		}
	}
}

// Flatten collapses `data` into a single level of entries, in document order.
//
// Nested object keys are joined with " > ", elements of arrays of objects get their index appended
// as "key[i]". Empty arrays become "[]", any other array becomes its JSON serialization.
// A scalar payload yields a single "value" entry and a nil payload yields no entries.
func Flatten(data any, opts ...FlattenOption) ([]Entry, error) {
	w := newWalker(DefaultMaxDepth)
	for _, opt := range opts {
		opt(w)
	}

	var entries []Entry
	switch {
	case data == nil:
		return entries, nil
	case isObject(data) || isArray(data):
		if err := w.flatten(&entries, data, "", 0); err != nil {
			return nil, err
		}
	default:
		entries = append(entries, Entry{Key: "value", Value: data})
	}
	return entries, nil
}

// flatten walks the properties of an object, or the indices of an array.
func (w *walker) flatten(entries *[]Entry, container any, prefix string, depth int) error {
	leave, err := w.enter(container, depth)
	if err != nil {
		return err
	}
	defer leave()

	if pairs, ok := objectPairs(container); ok {
		for _, p := range pairs {
			if err := w.flattenValue(entries, p.value, joinKey(prefix, p.key), depth); err != nil {
				return err
			}
		}
		return nil
	}

	for i, item := range container.([]any) {
		if err := w.flattenValue(entries, item, joinKey(prefix, strconv.Itoa(i)), depth); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) flattenValue(entries *[]Entry, value any, key string, depth int) error {
	if isObject(value) {
		return w.flatten(entries, value, key, depth+1)
	}

	items, ok := value.([]any)
	if !ok {
		*entries = append(*entries, Entry{Key: key, Value: value})
		return nil
	}

	switch {
	case len(items) == 0:
		*entries = append(*entries, Entry{Key: key, Value: "[]"})
	case allObjects(items):
		leave, err := w.enter(items, depth+1)
		if err != nil {
			return err
		}
		defer leave()
		for i, item := range items {
			if err := w.flatten(entries, item, key+"["+strconv.Itoa(i)+"]", depth+2); err != nil {
				return err
			}
		}
	default:
		s, err := w.compact(items, depth+1)
		if err != nil {
			return err
		}
		*entries = append(*entries, Entry{Key: key, Value: s})
	}
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + " > " + key
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func allObjects(items []any) bool {
	for _, item := range items {
		if !isObject(item) {
			return false
		}
	}
	return true
}
