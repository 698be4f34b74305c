// Package routes holds the static route table: one entry per browsable
// entity type, with its query templates, filters and vocabulary bindings.
// Loaded once at startup and immutable afterwards; the search pipeline
// clones templates per request.
package routes

import (
	"github.com/silknow/explorer-api/internal/search"
	"github.com/silknow/explorer-api/internal/sparql"
)

var prefixes = map[string]string{
	"ecrm": "http://erlangen-crm.org/current/",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"skos": "http://www.w3.org/2004/02/skos/core#",
	"dc":   "http://purl.org/dc/elements/1.1/",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
}

const (
	materialsFacet  = "http://data.silknow.org/vocabulary/facet/materials"
	techniquesFacet = "http://data.silknow.org/vocabulary/facet/techniques"
	depictionsFacet = "http://data.silknow.org/vocabulary/facet/depictions"
)

// Table builds the route registry.
func Table() map[string]*search.Route {
	return map[string]*search.Route{
		"objects": objectsRoute(),
	}
}

func objectsRoute() *search.Route {
	return &search.Route{
		Type:    "objects",
		URIBase: "http://data.silknow.org/object",
		List:    objectListTemplate(),
		Detail:  objectDetailTemplate(),
		Filters: []*search.Filter{
			{
				ID:        "material",
				Kind:      search.KindMultiEnum,
				Condition: search.CondUser,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?production ecrm:P108_has_produced ?id",
						"?production ecrm:P126_employed $value",
					},
					ValueAsURI: true,
				},
				Options:    facetOptionsTemplate(materialsFacet),
				Vocabulary: "material",
			},
			{
				ID:        "technique",
				Kind:      search.KindMultiEnum,
				Condition: search.CondUser,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?production ecrm:P108_has_produced ?id",
						"?production ecrm:P32_used_general_technique $value",
					},
					ValueAsURI: true,
				},
				Options:    facetOptionsTemplate(techniquesFacet),
				Vocabulary: "technique",
			},
			{
				ID:        "depiction",
				Kind:      search.KindMultiEnum,
				Condition: search.CondOr,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?id ecrm:P62_depicts $value",
					},
					ValueAsURI: true,
				},
				Options:    facetOptionsTemplate(depictionsFacet),
				Vocabulary: "depiction",
			},
			{
				ID:        "location",
				Kind:      search.KindEnum,
				Condition: search.CondOr,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?production ecrm:P108_has_produced ?id",
						"?production ecrm:P8_took_place_on_or_within $value",
					},
					ValueAsURI: true,
				},
			},
			{
				ID:        "time",
				Kind:      search.KindDateRange,
				Condition: search.CondOr,
				Strategy: search.YearRangeClause{
					Where: []string{
						"?production ecrm:P108_has_produced ?id",
						"?production ecrm:P4_has_time-span ?timespan",
						"?timespan ecrm:P82a_begin_of_the_begin ?year",
					},
					Var: "year",
				},
			},
			{
				ID:        "museum",
				Kind:      search.KindEnum,
				Condition: search.CondOr,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?id ecrm:P50_has_current_keeper $value",
					},
					ValueAsURI: true,
				},
			},
			{
				// Checkbox: only objects with at least one image. Leaving
				// it unchecked must not restrict anything.
				ID:        "has_image",
				Kind:      search.KindOption,
				Condition: search.CondAnd,
				Strategy: search.ClauseTemplate{
					Where: []string{
						"?id ecrm:P138i_has_representation ?anyImage",
					},
				},
			},
		},
		TextSearchWhere: []string{
			"?id rdfs:label ?textLabel",
		},
		TextSearchFilter: `REGEX(STR(?textLabel), "$text", "i")`,
		SortFields: map[string]search.SortField{
			"label": {
				Var:   "label",
				Where: []string{"OPTIONAL { ?id rdfs:label ?label }"},
			},
			"time": {
				Var: "year",
				Where: []string{
					"OPTIONAL { ?sortProduction ecrm:P108_has_produced ?id . ?sortProduction ecrm:P4_has_time-span ?sortTimespan . ?sortTimespan ecrm:P82a_begin_of_the_begin ?year }",
				},
			},
		},
	}
}

func objectListTemplate() *sparql.Template {
	return &sparql.Template{
		Projection: sparql.Object(map[string]*sparql.Node{
			"id": sparql.Leaf("id"),
		}),
		Where: []string{
			"?id a ecrm:E22_Man-Made_Object",
		},
		OrderBy:  &sparql.Order{Var: "id"},
		Prefixes: prefixes,
	}
}

func objectDetailTemplate() *sparql.Template {
	return &sparql.Template{
		Projection: sparql.Object(map[string]*sparql.Node{
			"id":          sparql.Leaf("id"),
			"label":       sparql.Leaf("label"),
			"description": sparql.Leaf("description"),
			"material": sparql.Object(map[string]*sparql.Node{
				"@id": sparql.Leaf("material"),
			}),
			"technique": sparql.Object(map[string]*sparql.Node{
				"@id": sparql.Leaf("technique"),
			}),
			"depiction": sparql.Object(map[string]*sparql.Node{
				"@id": sparql.Leaf("depiction"),
			}),
			"image": sparql.Object(map[string]*sparql.Node{
				"@id": sparql.Leaf("depictionImage"),
			}),
			"location": sparql.Object(map[string]*sparql.Node{
				"@id":   sparql.Leaf("location"),
				"label": sparql.Leaf("locationLabel"),
			}),
			"time": sparql.Object(map[string]*sparql.Node{
				"label": sparql.Leaf("timeLabel"),
			}),
			"museum": sparql.Object(map[string]*sparql.Node{
				"@id":   sparql.Leaf("museum"),
				"label": sparql.Leaf("museumLabel"),
			}),
		}),
		Where: []string{
			"?id a ecrm:E22_Man-Made_Object",
			"OPTIONAL { ?id rdfs:label ?label . FILTER(LANG(?label) = \"$lang\" || LANG(?label) = \"\") }",
			"OPTIONAL { ?id dc:description ?description . FILTER(LANG(?description) = \"$lang\" || LANG(?description) = \"\") }",
			"OPTIONAL { ?production ecrm:P108_has_produced ?id . ?production ecrm:P126_employed ?material }",
			"OPTIONAL { ?production2 ecrm:P108_has_produced ?id . ?production2 ecrm:P32_used_general_technique ?technique }",
			"OPTIONAL { ?id ecrm:P62_depicts ?depiction }",
			"OPTIONAL { ?id ecrm:P138i_has_representation ?depictionImage }",
			"OPTIONAL { ?production3 ecrm:P108_has_produced ?id . ?production3 ecrm:P8_took_place_on_or_within ?location . ?location rdfs:label ?locationLabel }",
			"OPTIONAL { ?production4 ecrm:P108_has_produced ?id . ?production4 ecrm:P4_has_time-span ?timespan . ?timespan rdfs:label ?timeLabel }",
			"OPTIONAL { ?id ecrm:P50_has_current_keeper ?museum . ?museum rdfs:label ?museumLabel }",
		},
		Prefixes: prefixes,
	}
}

func facetOptionsTemplate(facet string) *sparql.Template {
	return &sparql.Template{
		Projection: sparql.Object(map[string]*sparql.Node{
			"id":    sparql.Leaf("id"),
			"label": sparql.Leaf("label"),
		}),
		Where: []string{
			"?id skos:inScheme <" + facet + ">",
			"?id skos:prefLabel ?label",
			"FILTER(LANG(?label) = \"$lang\" || LANG(?label) = \"\")",
		},
		OrderBy:  &sparql.Order{Var: "label"},
		Prefixes: prefixes,
	}
}

// Vocabularies maps record fields to the templates enumerating their
// controlled terms. The resolver caches each term list after first use.
func Vocabularies() map[string]*sparql.Template {
	return map[string]*sparql.Template{
		"material":  vocabularyTemplate(materialsFacet),
		"technique": vocabularyTemplate(techniquesFacet),
		"depiction": vocabularyTemplate(depictionsFacet),
	}
}

func vocabularyTemplate(facet string) *sparql.Template {
	return &sparql.Template{
		Projection: sparql.Object(map[string]*sparql.Node{
			"id":       sparql.Leaf("id"),
			"label":    sparql.Leaf("label"),
			"altLabel": sparql.Leaf("altLabel"),
		}),
		Where: []string{
			"?id skos:inScheme <" + facet + ">",
			"?id skos:prefLabel ?label",
			"OPTIONAL { ?id skos:altLabel ?altLabel }",
		},
		Prefixes: prefixes,
	}
}
