// Package sparql holds the declarative query template model and its
// compilation to SPARQL 1.1 text, plus the reshaping of endpoint results
// into the nested graph form the templates describe.
package sparql

import "fmt"

// Node is one level of a template projection. A leaf carries the SPARQL
// variable (without the leading '?') whose binding fills the field; an
// object node carries named child projections.
type Node struct {
	Var    string
	Fields map[string]*Node
}

// Leaf builds a leaf projection node.
func Leaf(variable string) *Node {
	return &Node{Var: variable}
}

// Object builds a nested projection node.
func Object(fields map[string]*Node) *Node {
	return &Node{Fields: fields}
}

func (n *Node) isLeaf() bool {
	return n != nil && n.Var != "" && len(n.Fields) == 0
}

// Order is an ORDER BY directive over one variable.
type Order struct {
	Var  string
	Desc bool
}

// Template is the declarative representation of one query: a projection
// describing the result shape, graph patterns, filters and solution
// modifiers. Route configuration defines templates once at startup; every
// request works on a Clone.
type Template struct {
	Projection *Node
	Where      []string
	Filter     []string
	OrderBy    *Order
	Limit      int
	Offset     int
	Values     map[string][]string
	Prefixes   map[string]string
}

// Clone returns a deep copy. Binding and filter compilation always operate
// on clones so shared route configuration is never mutated across requests.
func (t *Template) Clone() *Template {
	if t == nil {
		return nil
	}
	out := &Template{
		Projection: t.Projection.clone(),
		Where:      append([]string(nil), t.Where...),
		Filter:     append([]string(nil), t.Filter...),
		Limit:      t.Limit,
		Offset:     t.Offset,
	}
	if t.OrderBy != nil {
		o := *t.OrderBy
		out.OrderBy = &o
	}
	if t.Values != nil {
		out.Values = make(map[string][]string, len(t.Values))
		for k, v := range t.Values {
			out.Values[k] = append([]string(nil), v...)
		}
	}
	if t.Prefixes != nil {
		out.Prefixes = make(map[string]string, len(t.Prefixes))
		for k, v := range t.Prefixes {
			out.Prefixes[k] = v
		}
	}
	return out
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Var: n.Var}
	if n.Fields != nil {
		out.Fields = make(map[string]*Node, len(n.Fields))
		for k, v := range n.Fields {
			out.Fields[k] = v.clone()
		}
	}
	return out
}

// variables lists every leaf variable of the projection, depth-first with
// field names sorted, "id" hoisted first when present at the root.
func (t *Template) variables() ([]string, error) {
	if t.Projection == nil {
		return nil, fmt.Errorf("template has no projection")
	}
	var vars []string
	seen := map[string]bool{}
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n == nil {
			return fmt.Errorf("nil projection node")
		}
		if n.isLeaf() {
			if !seen[n.Var] {
				seen[n.Var] = true
				vars = append(vars, n.Var)
			}
			return nil
		}
		if len(n.Fields) == 0 {
			return fmt.Errorf("projection node has neither variable nor fields")
		}
		for _, name := range SortedKeys(n.Fields) {
			if err := walk(n.Fields[name]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t.Projection); err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("projection binds no variables")
	}
	for i, v := range vars {
		if v == "id" && i != 0 {
			vars = append([]string{"id"}, append(vars[:i:i], vars[i+1:]...)...)
			break
		}
	}
	return vars, nil
}
