package sparql

import (
	"testing"
)

func sampleResponse() *Response {
	raw := []byte(`{
		"head": {"vars": ["id", "label", "material"]},
		"results": {"bindings": [
			{"id": {"type": "uri", "value": "http://data.silknow.org/object/1"},
			 "label": {"type": "literal", "value": "Chasuble", "xml:lang": "en"},
			 "material": {"type": "uri", "value": "http://data.silknow.org/vocabulary/277"}},
			{"id": {"type": "uri", "value": "http://data.silknow.org/object/1"},
			 "label": {"type": "literal", "value": "Chasuble", "xml:lang": "en"},
			 "material": {"type": "uri", "value": "http://data.silknow.org/vocabulary/380"}},
			{"id": {"type": "uri", "value": "http://data.silknow.org/object/2"},
			 "label": {"type": "literal", "value": "Fragment"}}
		]}
	}`)
	resp, err := ParseResponse(raw)
	if err != nil {
		panic(err)
	}
	return resp
}

func TestReshapeMergesRowsByID(t *testing.T) {
	tpl := &Template{
		Projection: Object(map[string]*Node{
			"id":    Leaf("id"),
			"label": Leaf("label"),
			"material": Object(map[string]*Node{
				"@id": Leaf("material"),
			}),
		}),
		Where: []string{"?id ?p ?o"},
	}

	graph := tpl.Reshape(sampleResponse())
	if len(graph) != 2 {
		t.Fatalf("expected 2 records, got %d", len(graph))
	}

	first := graph[0]
	if first["id"] != "http://data.silknow.org/object/1" {
		t.Fatalf("first record id = %v", first["id"])
	}
	label, ok := first["label"].(map[string]any)
	if !ok || label["@value"] != "Chasuble" || label["@language"] != "en" {
		t.Fatalf("language-tagged label not wrapped: %v", first["label"])
	}
	materials, ok := first["material"].([]any)
	if !ok || len(materials) != 2 {
		t.Fatalf("expected 2 distinct materials, got %v", first["material"])
	}

	second := graph[1]
	if second["label"] != "Fragment" {
		t.Fatalf("plain literal must stay a bare string, got %v", second["label"])
	}
	if _, ok := second["material"]; ok {
		t.Fatal("unbound optional field must be absent")
	}
}

func TestReshapeDropsRowsWithoutID(t *testing.T) {
	tpl := &Template{
		Projection: Object(map[string]*Node{"id": Leaf("id")}),
		Where:      []string{"?id ?p ?o"},
	}
	resp := &Response{}
	resp.Results.Bindings = []map[string]Binding{
		{"label": {Type: "literal", Value: "orphan"}},
	}
	if graph := tpl.Reshape(resp); len(graph) != 0 {
		t.Fatalf("expected empty graph, got %v", graph)
	}
}

func TestUnwrapValue(t *testing.T) {
	if got := UnwrapValue("plain"); got != "plain" {
		t.Fatalf("UnwrapValue(plain) = %q", got)
	}
	if got := UnwrapValue(map[string]any{"@value": "tagged", "@language": "en"}); got != "tagged" {
		t.Fatalf("UnwrapValue(tagged) = %q", got)
	}
	if got := UnwrapValue(42); got != "" {
		t.Fatalf("UnwrapValue(42) = %q", got)
	}
}
