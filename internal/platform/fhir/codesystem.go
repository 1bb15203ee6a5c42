package fhir

import (
	"time"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// CodeSystem identity. The NAMASTE terminology is published by the Ministry
// of AYUSH and versioned with the dataset release.
const (
	CodeSystemID      = "namaste-terminology"
	CodeSystemVersion = "1.0.0"
	CodeSystemName    = "NAMASTE"

	publisher = "Ministry of AYUSH, Government of India"
)

// Concept is one CodeSystem concept.
type Concept struct {
	Code       string
	Display    string
	Definition string
}

// NewCodeSystem builds the NAMASTE CodeSystem resource from the ingested
// concepts.
func NewCodeSystem(concepts []Concept, date time.Time) map[string]interface{} {
	list := make([]interface{}, 0, len(concepts))
	for _, c := range concepts {
		list = append(list, map[string]interface{}{
			"code":       c.Code,
			"display":    c.Display,
			"definition": c.Definition,
		})
	}
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceCodeSystem,
		"id":           CodeSystemID,
		"url":          fhirmodels.SystemNAMASTE,
		"version":      CodeSystemVersion,
		"name":         CodeSystemName,
		"title":        "NAMASTE Traditional Medicine Terminology",
		"status":       fhirmodels.StatusActive,
		"experimental": false,
		"date":         date.Format(time.RFC3339),
		"publisher":    publisher,
		"description":  "NAMASTE (National AYUSH Morbidity and Standardized Terminologies Electronic) terminology system for traditional medicine",
		"content":      "complete",
		"count":        len(concepts),
		"concept":      list,
	}
}
