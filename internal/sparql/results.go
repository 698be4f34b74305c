package sparql

import (
	"encoding/json"
	"fmt"
)

// Binding is one cell of a SPARQL JSON results row.
type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Response mirrors the SPARQL 1.1 JSON results document.
type Response struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
}

// ParseResponse decodes a SPARQL JSON results document.
func ParseResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse sparql response: %w", err)
	}
	return &resp, nil
}

// Graph is the reshaped form of a result set: one record per root id, with
// nested fields following the template projection.
type Graph []map[string]any

// Reshape folds flat result rows into the nested shape the projection
// describes. Rows sharing a root id merge into one record; a field that
// sees more than one distinct value accumulates them into a list. Rows
// without an id binding are dropped.
func (t *Template) Reshape(resp *Response) Graph {
	if t == nil || t.Projection == nil || resp == nil {
		return nil
	}
	root := t.Projection
	idVar := rootIDVar(root)
	if idVar == "" {
		return nil
	}

	var order []string
	byID := map[string]map[string]any{}

	for _, row := range resp.Results.Bindings {
		idCell, ok := row[idVar]
		if !ok || idCell.Value == "" {
			continue
		}
		rec, ok := byID[idCell.Value]
		if !ok {
			rec = map[string]any{}
			byID[idCell.Value] = rec
			order = append(order, idCell.Value)
		}
		mergeRow(rec, root, row)
	}

	out := make(Graph, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// rootIDVar finds the variable carrying the record identity: the root
// node's "id" field, or the root itself when the projection is a bare leaf.
func rootIDVar(root *Node) string {
	if root.isLeaf() {
		return root.Var
	}
	if id, ok := root.Fields["id"]; ok && id.isLeaf() {
		return id.Var
	}
	return ""
}

func mergeRow(rec map[string]any, node *Node, row map[string]Binding) {
	for name, child := range node.Fields {
		if child.isLeaf() {
			cell, ok := row[child.Var]
			if !ok || cell.Value == "" {
				continue
			}
			mergeValue(rec, name, cellValue(cell))
			continue
		}
		nested := map[string]any{}
		mergeRow(nested, child, row)
		if len(nested) == 0 {
			continue
		}
		mergeValue(rec, name, nested)
	}
}

// mergeValue accumulates distinct values under a field, promoting the field
// to a list on the second distinct value.
func mergeValue(rec map[string]any, field string, val any) {
	existing, ok := rec[field]
	if !ok {
		rec[field] = val
		return
	}
	key := canonical(val)
	if list, ok := existing.([]any); ok {
		for _, item := range list {
			if canonical(item) == key {
				return
			}
		}
		rec[field] = append(list, val)
		return
	}
	if canonical(existing) == key {
		return
	}
	rec[field] = []any{existing, val}
}

func canonical(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func cellValue(cell Binding) any {
	if cell.Lang != "" {
		return map[string]any{"@value": cell.Value, "@language": cell.Lang}
	}
	return cell.Value
}

// UnwrapValue extracts the plain string from a result value, which is
// either a bare string or a {"@value": ..., "@language": ...} wrapper.
func UnwrapValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["@value"].(string); ok {
			return s
		}
	}
	return ""
}
