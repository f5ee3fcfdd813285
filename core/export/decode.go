package export

import (
	"bytes"
	"encoding/json"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/pkg/errors"
)

var jsonAPI = jsoniter.Config{
	EscapeHTML:  false,
	SortMapKeys: true,
}.Froze()

type pair struct {
	key   string
	value any
}

// Decode decodes any JSON value. Objects keep their property order, numbers decode to float64.
// An empty document or `null` decodes to nil.
func Decode(raw []byte) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	switch raw[0] {
	case '{':
		om := orderedmap.New()
		if err := jsonAPI.Unmarshal(raw, om); err != nil {
			return nil, errors.Wrap(err, "decoding object")
		}
		return om, nil
	case '[':
		var items []json.RawMessage
		if err := jsonAPI.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, "decoding array")
		}
		arr := make([]any, 0, len(items))
		for i, item := range items {
			v, err := Decode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding item %d", i)
			}
			arr = append(arr, v)
		}
		return arr, nil
	default:
		var v any
		if err := jsonAPI.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "decoding value")
		}
		return v, nil
	}
}

// Normalize returns `v` in the shape produced by Decode.
// Raw JSON is decoded; values that are not plain JSON values (structs, typed slices, ...) are re-encoded first,
// including the ones nested in a map[string]any or an []any.
func Normalize(v any, opts ...FlattenOption) (any, error) {
	w := newWalker(DefaultMaxDepth)
	for _, opt := range opts {
		opt(w)
	}
	return w.normalize(v, 0)
}

func (w *walker) normalize(v any, depth int) (any, error) {
	switch v := v.(type) {
	case nil, bool, float64, string, *orderedmap.OrderedMap, orderedmap.OrderedMap:
		return v, nil
	case json.RawMessage:
		return Decode(v)
	case []byte:
		return Decode(v)
	case []any:
		leave, err := w.enter(v, depth)
		if err != nil {
			return nil, err
		}
		defer leave()

		items := make([]any, len(v))
		for i, item := range v {
			if items[i], err = w.normalize(item, depth+1); err != nil {
				return nil, err
			}
		}
		return items, nil
	case map[string]any:
		leave, err := w.enter(v, depth)
		if err != nil {
			return nil, err
		}
		defer leave()

		obj := make(map[string]any, len(v))
		for k, item := range v {
			if obj[k], err = w.normalize(item, depth+1); err != nil {
				return nil, err
			}
		}
		return obj, nil
	default:
		raw, err := jsonAPI.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "encoding data")
		}
		return Decode(raw)
	}
}

func isObject(v any) bool {
	switch v := v.(type) {
	case *orderedmap.OrderedMap:
		return v != nil
	case orderedmap.OrderedMap, map[string]any:
		return true
	}
	return false
}

// objectPairs returns the properties of an object in order.
// map[string]any has no order of its own, its keys are sorted.
func objectPairs(v any) ([]pair, bool) {
	switch v := v.(type) {
	case *orderedmap.OrderedMap:
		if v == nil {
			return nil, false
		}
		return orderedPairs(v), true
	case orderedmap.OrderedMap:
		return orderedPairs(&v), true
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]pair, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, pair{key: k, value: v[k]})
		}
		return pairs, true
	}
	return nil, false
}

func orderedPairs(om *orderedmap.OrderedMap) []pair {
	keys := om.Keys()
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		v, _ := om.Get(k)
		pairs = append(pairs, pair{key: k, value: v})
	}
	return pairs
}

// objectGet returns the value of property `key`; ok is false if it is not set.
func objectGet(obj any, key string) (any, bool) {
	switch obj := obj.(type) {
	case *orderedmap.OrderedMap:
		if obj == nil {
			return nil, false
		}
		return obj.Get(key)
	case orderedmap.OrderedMap:
		return obj.Get(key)
	case map[string]any:
		v, ok := obj[key]
		return v, ok
	}
	return nil, false
}
