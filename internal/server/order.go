package server

import (
	"bytes"
	"encoding/json"
	"sort"

	language "github.com/hanpama/graphqlview/internal/language"
)

// keyOrder is the response key order of a selection set, with the merged
// order of every key's subselection. Fragments are expanded regardless of
// their type condition; keys the executed type did not produce are simply
// absent from the data.
type keyOrder struct {
	keys []string
	sub  map[string]*keyOrder
}

func orderOf(op *language.OperationDefinition, fragments language.FragmentDefinitionList) *keyOrder {
	o := &keyOrder{}
	o.add(op.SelectionSet, fragments, map[string]bool{})
	return o
}

func (o *keyOrder) add(set language.SelectionSet, fragments language.FragmentDefinitionList, active map[string]bool) {
	for _, selection := range set {
		switch sel := selection.(type) {
		case *language.Field:
			key := sel.Alias
			if key == "" {
				key = sel.Name
			}
			if o.sub == nil {
				o.sub = map[string]*keyOrder{}
			}
			child, ok := o.sub[key]
			if !ok {
				child = &keyOrder{}
				o.sub[key] = child
				o.keys = append(o.keys, key)
			}
			child.add(sel.SelectionSet, fragments, active)
		case *language.InlineFragment:
			o.add(sel.SelectionSet, fragments, active)
		case *language.FragmentSpread:
			def := fragments.ForName(sel.Name)
			if def == nil || active[sel.Name] {
				continue
			}
			active[sel.Name] = true
			o.add(def.SelectionSet, fragments, active)
			delete(active, sel.Name)
		}
	}
}

// orderedData marshals result data with object keys in selection order.
// Keys missing from the order follow in sorted order.
type orderedData struct {
	value any
	order *keyOrder
}

func (d orderedData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeOrdered(&buf, d.value, d.order); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeOrdered(buf *bytes.Buffer, v any, o *keyOrder) error {
	switch v := v.(type) {
	case map[string]any:
		buf.WriteByte('{')
		first := true
		emit := func(key string) error {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := writeLeaf(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			var child *keyOrder
			if o != nil {
				child = o.sub[key]
			}
			return writeOrdered(buf, v[key], child)
		}
		seen := make(map[string]bool, len(v))
		if o != nil {
			for _, key := range o.keys {
				if _, ok := v[key]; ok {
					seen[key] = true
					if err := emit(key); err != nil {
						return err
					}
				}
			}
		}
		var rest []string
		for key := range v {
			if !seen[key] {
				rest = append(rest, key)
			}
		}
		sort.Strings(rest)
		for _, key := range rest {
			if err := emit(key); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeOrdered(buf, item, o); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	return writeLeaf(buf, v)
}

func writeLeaf(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
