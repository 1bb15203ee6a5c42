// Package fhir shapes the terminology service's outputs as FHIR R4
// resources. Resources are built as generic JSON maps so handlers can
// return them directly.
package fhir

import (
	"github.com/namaste/namaste/pkg/fhirmodels"
)

// Issue severity codes per FHIR R4.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// Issue type codes per FHIR R4.
const (
	IssueTypeInvalid      = "invalid"
	IssueTypeNotFound     = "not-found"
	IssueTypeNotSupported = "not-supported"
	IssueTypeTransient    = "transient"
	IssueTypeProcessing   = "processing"
)

// OperationOutcome builds an OperationOutcome with a single issue.
func OperationOutcome(severity, code, diagnostics string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": fhirmodels.ResourceOperationOutcome,
		"issue": []interface{}{
			map[string]interface{}{
				"severity":    severity,
				"code":        code,
				"diagnostics": diagnostics,
			},
		},
	}
}

// ErrorOutcome is an error-severity processing outcome.
func ErrorOutcome(diagnostics string) map[string]interface{} {
	return OperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

// InvalidOutcome reports a malformed or unacceptable request.
func InvalidOutcome(diagnostics string) map[string]interface{} {
	return OperationOutcome(IssueSeverityError, IssueTypeInvalid, diagnostics)
}

// NotFoundOutcome reports a missing code or resource.
func NotFoundOutcome(diagnostics string) map[string]interface{} {
	return OperationOutcome(IssueSeverityError, IssueTypeNotFound, diagnostics)
}

// NotReadyOutcome reports that no terminology data has been ingested yet.
func NotReadyOutcome() map[string]interface{} {
	return OperationOutcome(IssueSeverityError, IssueTypeTransient, "no terminology data ingested")
}

// NotSupportedOutcome reports an unsupported operation or direction.
func NotSupportedOutcome(diagnostics string) map[string]interface{} {
	return OperationOutcome(IssueSeverityError, IssueTypeNotSupported, diagnostics)
}
