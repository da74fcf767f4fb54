package executor

import (
	language "github.com/hanpama/graphqlview/internal/language"
	schema "github.com/hanpama/graphqlview/internal/schema"
)

// fieldGroup is every field node answering to one response key.
type fieldGroup struct {
	key   string
	nodes []*language.Field
}

// groupedFields keeps response keys in the order they first appear.
type groupedFields struct {
	groups []fieldGroup
	byKey  map[string]int
}

func (g *groupedFields) add(f *language.Field) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	if i, ok := g.byKey[key]; ok {
		g.groups[i].nodes = append(g.groups[i].nodes, f)
		return
	}
	g.byKey[key] = len(g.groups)
	g.groups = append(g.groups, fieldGroup{key: key, nodes: []*language.Field{f}})
}

type collector struct {
	state   *executionState
	object  *schema.Type
	out     *groupedFields
	visited map[string]struct{}
}

// collectFields flattens selectionSet for object, expanding fragments that
// apply to it and dropping nodes excluded by @skip or @include.
func collectFields(state *executionState, object *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	c := &collector{
		state:   state,
		object:  object,
		out:     &groupedFields{byKey: map[string]int{}},
		visited: map[string]struct{}{},
	}
	c.collect(selectionSet)
	return c.out.groups
}

func (c *collector) collect(selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if c.included(sel.Directives) {
				c.out.add(sel)
			}
		case *language.InlineFragment:
			if c.included(sel.Directives) && c.applies(sel.TypeCondition) {
				c.collect(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if !c.included(sel.Directives) {
				continue
			}
			if _, seen := c.visited[sel.Name]; seen {
				continue
			}
			c.visited[sel.Name] = struct{}{}
			def := c.state.document.Fragments.ForName(sel.Name)
			if def == nil || !c.applies(def.TypeCondition) || !c.included(def.Directives) {
				continue
			}
			c.collect(def.SelectionSet)
		}
	}
}

// included evaluates @skip and @include. An "if" argument that is missing
// or not a boolean leaves the node in.
func (c *collector) included(directives language.DirectiveList) bool {
	if c.condition(directives, "skip") == true {
		return false
	}
	return c.condition(directives, "include") != false
}

func (c *collector) condition(directives language.DirectiveList, name string) any {
	d := directives.ForName(name)
	if d == nil {
		return nil
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return nil
	}
	return literal(arg.Value, c.state.variableValues)
}

// applies reports whether a fragment typed on condition matches the object.
// Interface and union conditions match their members.
func (c *collector) applies(condition string) bool {
	return condition == "" || c.state.schema.Implements(c.object, condition)
}
