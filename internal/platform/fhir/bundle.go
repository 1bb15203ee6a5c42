package fhir

import (
	"errors"
	"time"

	"github.com/namaste/namaste/pkg/fhirmodels"
)

// ErrNotBundle is returned when an uploaded document is not a FHIR Bundle.
var ErrNotBundle = errors.New("resource is not a FHIR Bundle")

// StampBundle validates that the document is a Bundle and stamps its meta
// block with a version, update time and a normal-confidentiality security
// label. The bundle is modified in place.
func StampBundle(bundle map[string]interface{}, now time.Time) error {
	if rt, _ := bundle["resourceType"].(string); rt != fhirmodels.ResourceBundle {
		return ErrNotBundle
	}
	bundle["meta"] = map[string]interface{}{
		"versionId":   "1",
		"lastUpdated": now.UTC().Format(time.RFC3339),
		"security": []interface{}{
			map[string]interface{}{
				"system": fhirmodels.ConfidentialitySystemURI,
				"code":   fhirmodels.ConfidentialityNormal,
			},
		},
	}
	return nil
}
