// pkg/view/view.go

package view

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// View is a renderable, JSON-compatible tree describing one or more program
// values. Consumers treat it as opaque; the collector frontend decides how to
// render each node type.
type View map[string]interface{}

// Node types understood by the renderer.
const (
	TypeText      = "text"
	TypeFlow      = "flow"
	TypeSequence  = "sequence"
	TypeKeyValues = "keyValues"
)

// Maximum nesting depth when reflecting over composite values. Anything
// deeper is rendered as its string representation.
const DefaultMaxDepth = 8

// Flowable marks a set of values that should be assembled as one composite
// renderable unit. Create one with Flow.
type Flowable struct {
	elements []interface{}
}

// Flow groups multiple values so they are presented together as a single
// renderable unit.
func Flow(values ...interface{}) Flowable {
	return Flowable{elements: values}
}

// Assemble converts a value into its renderable View tree.
func Assemble(value interface{}) View {
	return assemble(value, 0)
}

func assemble(value interface{}, depth int) View {
	if value == nil {
		return textView("None")
	}

	if f, ok := value.(Flowable); ok {
		elements := make([]View, 0, len(f.elements))
		for _, el := range f.elements {
			elements = append(elements, assemble(el, depth+1))
		}
		return View{"type": TypeFlow, "elements": elements}
	}

	if v, ok := value.(View); ok {
		// Already assembled; pass through untouched.
		return v
	}

	switch v := value.(type) {
	case string:
		return textView(v)
	case bool:
		return textView(strconv.FormatBool(v))
	case error:
		return textView(v.Error())
	case fmt.Stringer:
		return textView(v.String())
	}

	if depth >= DefaultMaxDepth {
		return textView(fmt.Sprintf("%v", value))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return textView("None")
		}
		return assemble(rv.Elem().Interface(), depth)
	case reflect.Slice, reflect.Array:
		elements := make([]View, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elements = append(elements, assemble(rv.Index(i).Interface(), depth+1))
		}
		return View{"type": TypeSequence, "elements": elements}
	case reflect.Map:
		keys := rv.MapKeys()
		entries := make([]View, 0, len(keys))
		names := make([]string, 0, len(keys))
		byName := make(map[string]reflect.Value, len(keys))
		for _, k := range keys {
			name := fmt.Sprintf("%v", k.Interface())
			names = append(names, name)
			byName[name] = k
		}
		sort.Strings(names) // Stable rendering order.
		for _, name := range names {
			entries = append(entries, View{
				"key":   textView(name),
				"value": assemble(rv.MapIndex(byName[name]).Interface(), depth+1),
			})
		}
		return View{"type": TypeKeyValues, "entries": entries}
	case reflect.Struct:
		rt := rv.Type()
		entries := make([]View, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			entries = append(entries, View{
				"key":   textView(field.Name),
				"value": assemble(rv.Field(i).Interface(), depth+1),
			})
		}
		return View{"type": TypeKeyValues, "entries": entries}
	}

	// Numbers and anything else render through fmt.
	return textView(fmt.Sprintf("%v", value))
}

func textView(text string) View {
	return View{"type": TypeText, "text": text}
}
