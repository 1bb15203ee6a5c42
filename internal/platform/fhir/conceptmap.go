package fhir

import (
	"time"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ConceptMap identity.
const (
	ConceptMapID      = "namaste-to-icd11"
	ConceptMapURL     = "http://example.com/namaste-to-icd11"
	ConceptMapVersion = "1.0.0"
	ConceptMapName    = "NamasteToICD11"
)

// MapTarget is one target code within a ConceptMap element.
type MapTarget struct {
	Code        string
	Display     string
	Equivalence string
	Comment     string
}

// MapElement maps a single source code to its targets.
type MapElement struct {
	Code    string
	Display string
	Targets []MapTarget
}

// NewConceptMap builds the NAMASTE to ICD-11 ConceptMap resource.
func NewConceptMap(elements []MapElement, date time.Time) map[string]interface{} {
	elementList := make([]interface{}, 0, len(elements))
	for _, el := range elements {
		targets := make([]interface{}, 0, len(el.Targets))
		for _, t := range el.Targets {
			equivalence := t.Equivalence
			if equivalence == "" {
				equivalence = fhirmodels.EquivalenceEquivalent
			}
			targets = append(targets, map[string]interface{}{
				"code":        t.Code,
				"display":     t.Display,
				"equivalence": equivalence,
				"comment":     t.Comment,
			})
		}
		elementList = append(elementList, map[string]interface{}{
			"code":    el.Code,
			"display": el.Display,
			"target":  targets,
		})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceConceptMap,
		"id":           ConceptMapID,
		"url":          ConceptMapURL,
		"version":      ConceptMapVersion,
		"name":         ConceptMapName,
		"title":        "NAMASTE to ICD-11 Concept Map",
		"status":       fhirmodels.StatusActive,
		"experimental": false,
		"date":         date.Format(time.RFC3339),
		"publisher":    publisher,
		"description":  "Mapping from NAMASTE traditional medicine terminology to ICD-11 Traditional Medicine 2 (TM2) and Biomedicine codes",
		"sourceUri":    fhirmodels.SystemNAMASTE,
		"targetUri":    fhirmodels.SystemICD11,
		"group": []interface{}{
			map[string]interface{}{
				"source":  fhirmodels.SystemNAMASTE,
				"target":  fhirmodels.SystemICD11,
				"element": elementList,
			},
		},
	}
}

// TranslateMatch is one translation result returned by a translate call.
type TranslateMatch struct {
	System  string
	Code    string
	Display string
	Comment string
}

// NewTranslateResult builds the compact translate response used by the
// REST translate endpoint: a list of matched concepts.
func NewTranslateResult(matches []TranslateMatch) map[string]interface{} {
	list := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		list = append(list, map[string]interface{}{
			"concept": map[string]interface{}{
				"coding": []interface{}{
					map[string]interface{}{
						"system":  m.System,
						"code":    m.Code,
						"display": m.Display,
					},
				},
			},
		})
	}
	return map[string]interface{}{"match": list}
}

// NewTranslateParameters builds the FHIR Parameters response for the
// ConceptMap $translate operation.
func NewTranslateParameters(matches []TranslateMatch) map[string]interface{} {
	params := []interface{}{
		map[string]interface{}{
			"name":         "result",
			"valueBoolean": len(matches) > 0,
		},
	}
	for _, m := range matches {
		parts := []interface{}{
			map[string]interface{}{
				"name":      "equivalence",
				"valueCode": fhirmodels.EquivalenceEquivalent,
			},
			map[string]interface{}{
				"name": "concept",
				"valueCoding": map[string]interface{}{
					"system":  m.System,
					"code":    m.Code,
					"display": m.Display,
				},
			},
		}
		if m.Comment != "" {
			parts = append(parts, map[string]interface{}{
				"name":        "comment",
				"valueString": m.Comment,
			})
		}
		params = append(params, map[string]interface{}{
			"name": "match",
			"part": parts,
		})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceParameters,
		"parameter":    params,
	}
}
