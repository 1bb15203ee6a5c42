package fhirmodels

// Common FHIR value set constants used across the application.

// Terminology system URIs.
const (
	SystemNAMASTE = "http://ayush.gov.in/namaste"
	SystemICD11   = "http://hl7.org/fhir/sid/icd-11"
)

// ConceptMap equivalence codes per FHIR R4.
const (
	EquivalenceEquivalent = "equivalent"
	EquivalenceWider      = "wider"
	EquivalenceNarrower   = "narrower"
	EquivalenceInexact    = "inexact"
	EquivalenceUnmatched  = "unmatched"
)

// Resource types produced by this service.
const (
	ResourceCodeSystem       = "CodeSystem"
	ResourceConceptMap       = "ConceptMap"
	ResourceValueSet         = "ValueSet"
	ResourceCondition        = "Condition"
	ResourceBundle           = "Bundle"
	ResourceObservation      = "Observation"
	ResourceParameters       = "Parameters"
	ResourceOperationOutcome = "OperationOutcome"
)

// Publication status codes per FHIR R4.
const (
	StatusDraft   = "draft"
	StatusActive  = "active"
	StatusRetired = "retired"
)

// Condition clinical status codes per FHIR R4.
const (
	ConditionClinicalActive   = "active"
	ConditionClinicalResolved = "resolved"
	ConditionClinicalInactive = "inactive"
)

// v3-Confidentiality codes used on Bundle security labels.
const (
	ConfidentialityNormal     = "N"
	ConfidentialityRestricted = "R"
	ConfidentialitySystemURI  = "http://terminology.hl7.org/CodeSystem/v3-Confidentiality"
)
