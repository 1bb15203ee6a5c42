package fhir

import (
	"time"

	"github.com/google/uuid"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ConditionInput carries everything needed to build a dual-coded Condition
// resource: the NAMASTE concept plus its ICD-11 mappings.
type ConditionInput struct {
	PatientRef    string
	Code          string
	Display       string
	TM2Code       string
	TM2Display    string
	BiomedCode    string
	BiomedDisplay string
	RecordedAt    time.Time
}

// NewCondition builds a Condition resource coded with the NAMASTE concept
// and its ICD-11 TM2 and Biomedicine translations side by side, so a
// single clinical record carries both traditional-medicine and biomedical
// views of the diagnosis.
func NewCondition(in ConditionInput) map[string]interface{} {
	coding := []interface{}{
		map[string]interface{}{
			"system":  fhirmodels.SystemNAMASTE,
			"code":    in.Code,
			"display": in.Display,
		},
	}
	if in.TM2Code != "" {
		coding = append(coding, map[string]interface{}{
			"system":  fhirmodels.SystemICD11,
			"code":    in.TM2Code,
			"display": in.TM2Display,
		})
	}
	if in.BiomedCode != "" {
		coding = append(coding, map[string]interface{}{
			"system":  fhirmodels.SystemICD11,
			"code":    in.BiomedCode,
			"display": in.BiomedDisplay,
		})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceCondition,
		"id":           uuid.NewString(),
		"clinicalStatus": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{
					"system": "http://terminology.hl7.org/CodeSystem/condition-clinical",
					"code":   fhirmodels.ConditionClinicalActive,
				},
			},
		},
		"code": map[string]interface{}{
			"coding": coding,
			"text":   in.Display,
		},
		"subject": map[string]interface{}{
			"reference": in.PatientRef,
		},
		"recordedDate": in.RecordedAt.Format(time.RFC3339),
	}
}
