package export

import (
	"bytes"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

const DefaultMaxDepth = 64

type refKey struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

// walker tracks the containers on the current path so that deep or cyclic data fails instead of overflowing the stack.
type walker struct {
	maxDepth int
	path     map[refKey]struct{}
}

func newWalker(maxDepth int) *walker {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &walker{maxDepth: maxDepth, path: make(map[refKey]struct{})}
}

// enter must be paired with the returned leave func.
func (w *walker) enter(v any, depth int) (leave func(), err error) {
	if depth > w.maxDepth {
		return nil, ErrMaxDepth
	}
	key, ok := reference(v)
	if !ok {
		return func() {}, nil
	}
	if _, seen := w.path[key]; seen {
		return nil, ErrCyclicData
	}
	w.path[key] = struct{}{}
	return func() { delete(w.path, key) }, nil
}

func reference(v any) (refKey, bool) {
	if v == nil {
		return refKey{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Ptr:
		if rv.IsNil() {
			return refKey{}, false
		}
		return refKey{kind: rv.Kind(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return refKey{}, false
		}
		return refKey{kind: rv.Kind(), ptr: rv.Pointer(), len: rv.Len()}, true
	}
	return refKey{}, false
}

// compact serializes `v` to compact JSON without HTML escaping; objects keep their property order.
func (w *walker) compact(v any, depth int) (string, error) {
	var buf bytes.Buffer
	if err := w.writeCompact(&buf, v, depth); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (w *walker) writeCompact(buf *bytes.Buffer, v any, depth int) error {
	pairs, isObj := objectPairs(v)
	items, isArr := v.([]any)
	if !isObj && !isArr {
		raw, err := jsonAPI.Marshal(v)
		if err != nil {
			return errors.Wrap(err, "encoding value")
		}
		buf.Write(raw)
		return nil
	}

	leave, err := w.enter(v, depth)
	if err != nil {
		return err
	}
	defer leave()

	if isObj {
		buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quote(p.key))
			buf.WriteByte(':')
			if err := w.writeCompact(buf, p.value, depth+1); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	}

	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := w.writeCompact(buf, item, depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func quote(s string) string {
	raw, err := jsonAPI.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(raw)
}
