package fhir

import (
	"time"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// Extension URLs carrying the ICD-11 mappings on expansion entries.
const (
	ExtensionTM2    = "icd11_tm2"
	ExtensionBiomed = "icd11_biomed"
)

// ExpansionEntry is one concept in a ValueSet expansion, with its ICD-11
// mappings attached as extensions.
type ExpansionEntry struct {
	Code       string
	Display    string
	TM2Code    string
	BiomedCode string
}

// NewValueSetExpansion builds a ValueSet resource whose expansion contains
// the given entries.
func NewValueSetExpansion(entries []ExpansionEntry, timestamp time.Time) map[string]interface{} {
	contains := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		contains = append(contains, map[string]interface{}{
			"system":  fhirmodels.SystemNAMASTE,
			"code":    e.Code,
			"display": e.Display,
			"extension": []interface{}{
				map[string]interface{}{"url": ExtensionTM2, "valueCode": e.TM2Code},
				map[string]interface{}{"url": ExtensionBiomed, "valueCode": e.BiomedCode},
			},
		})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceValueSet,
		"expansion": map[string]interface{}{
			"timestamp": timestamp.Format(time.RFC3339),
			"total":     len(entries),
			"contains":  contains,
		},
	}
}

// NewLookupParameters builds the Parameters response for the CodeSystem
// $lookup operation.
func NewLookupParameters(display, definition string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceParameters,
		"parameter": []interface{}{
			map[string]interface{}{"name": "name", "valueString": CodeSystemName},
			map[string]interface{}{"name": "version", "valueString": CodeSystemVersion},
			map[string]interface{}{"name": "display", "valueString": display},
			map[string]interface{}{"name": "definition", "valueString": definition},
		},
	}
}

// NewValidateCodeParameters builds the Parameters response for the
// CodeSystem $validate-code operation.
func NewValidateCodeParameters(valid bool, display, message string) map[string]interface{} {
	params := []interface{}{
		map[string]interface{}{"name": "result", "valueBoolean": valid},
	}
	if display != "" {
		params = append(params, map[string]interface{}{"name": "display", "valueString": display})
	}
	if message != "" {
		params = append(params, map[string]interface{}{"name": "message", "valueString": message})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceParameters,
		"parameter":    params,
	}
}
