package terminology

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/namaste/namaste/internal/platform/fhir"
	"github.com/namaste/namaste/internal/platform/ingest"
	"github.com/namaste/namaste/pkg/fhirmodels"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With().Str("component", "terminology-http").Logger()}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.POST("/ingest-namaste", h.IngestNamaste)
	api.GET("/terminology/search", h.SearchTerminology)
	api.POST("/valueset-lookup", h.ValueSetLookup)
	api.POST("/translate", h.Translate)
	api.POST("/condition", h.CreateCondition)
	api.POST("/upload-bundle", h.UploadBundle)
	api.GET("/analytics", h.Analytics)
	api.GET("/cache-summary", h.CacheSummary)

	fhirGroup.GET("/CodeSystem/namaste", h.GetCodeSystem)
	fhirGroup.GET("/CodeSystem/$lookup", h.LookupOperation)
	fhirGroup.GET("/CodeSystem/$validate-code", h.ValidateCodeOperation)
	fhirGroup.GET("/ConceptMap/namaste-icd11", h.GetConceptMap)
	fhirGroup.GET("/ConceptMap/$translate", h.TranslateOperation)
	fhirGroup.GET("/ValueSet/$expand", h.ExpandOperation)
	fhirGroup.POST("/Bundle", h.UploadBundle)
}

// -- Ingestion --

func (h *Handler) IngestNamaste(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("multipart field 'file' is required"))
	}
	f, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("cannot open uploaded file"))
	}
	defer f.Close()

	rows, err := ingest.ParseCSV(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	count, err := h.svc.Ingest(c.Request().Context(), rows)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"records": count,
	})
}

// -- Search --

func (h *Handler) SearchTerminology(c echo.Context) error {
	query := c.QueryParam("q")
	limit := intParam(c, "limit", DefaultSearchLimit)
	threshold := intParam(c, "threshold", DefaultSearchThreshold)

	results, err := h.svc.Search(query, limit, threshold)
	if err != nil {
		return h.notReady(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query":   query,
		"total":   len(results),
		"results": results,
	})
}

func (h *Handler) ValueSetLookup(c echo.Context) error {
	var req struct {
		Term string `json:"term"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("invalid request body"))
	}
	results, err := h.svc.Search(req.Term, DefaultSearchLimit, DefaultSearchThreshold)
	if err != nil {
		return h.notReady(c, err)
	}
	return c.JSON(http.StatusOK, expansionFromResults(results))
}

func (h *Handler) ExpandOperation(c echo.Context) error {
	filter := c.QueryParam("filter")
	limit := intParam(c, "count", DefaultSearchLimit)

	results, err := h.svc.Search(filter, limit, DefaultSearchThreshold)
	if err != nil {
		return h.notReady(c, err)
	}
	return c.JSON(http.StatusOK, expansionFromResults(results))
}

func expansionFromResults(results []SearchResult) map[string]interface{} {
	entries := make([]fhir.ExpansionEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, fhir.ExpansionEntry{
			Code:       r.Code,
			Display:    r.Display,
			TM2Code:    r.TM2Code,
			BiomedCode: r.BiomedCode,
		})
	}
	return fhir.NewValueSetExpansion(entries, time.Now().UTC())
}

// -- Translation --

func (h *Handler) Translate(c echo.Context) error {
	var req struct {
		Code   string `json:"code"`
		System string `json:"system"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("invalid request body"))
	}

	var (
		translations []Translation
		exists       bool
	)
	switch req.System {
	case "namaste":
		var err error
		translations, exists, err = h.svc.TranslateAll(req.Code)
		if err != nil {
			return h.notReady(c, err)
		}
	case "icd11":
		var err error
		translations, err = h.svc.ReverseTranslate(req.Code)
		if err != nil {
			return h.notReady(c, err)
		}
		exists = len(translations) > 0
	default:
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("system must be 'namaste' or 'icd11'"))
	}

	if !exists {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("code not found"))
	}
	return c.JSON(http.StatusOK, fhir.NewTranslateResult(translateMatches(req.System, translations)))
}

func (h *Handler) TranslateOperation(c echo.Context) error {
	code := c.QueryParam("code")
	source, err := ParseSystem(c.QueryParam("system"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	target, err := ParseSystem(c.QueryParam("target"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}

	translations, exists, err := h.svc.Translate(code, source, target)
	if err != nil {
		if errors.Is(err, ErrUnsupportedDirection) {
			return c.JSON(http.StatusBadRequest, fhir.NotSupportedOutcome(err.Error()))
		}
		return h.notReady(c, err)
	}
	if !exists {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("code not found"))
	}
	return c.JSON(http.StatusOK, fhir.NewTranslateParameters(translateMatchesFor(source, translations)))
}

func translateMatches(sourceSystem string, translations []Translation) []fhir.TranslateMatch {
	targetURI := fhirmodels.SystemICD11
	if sourceSystem == "icd11" {
		targetURI = fhirmodels.SystemNAMASTE
	}
	out := make([]fhir.TranslateMatch, 0, len(translations))
	for _, tr := range translations {
		out = append(out, fhir.TranslateMatch{
			System:  targetURI,
			Code:    tr.TargetCode,
			Display: tr.Display,
			Comment: tr.Comment,
		})
	}
	return out
}

func translateMatchesFor(source System, translations []Translation) []fhir.TranslateMatch {
	sourceSystem := "namaste"
	if source != SystemNAMASTE {
		sourceSystem = "icd11"
	}
	return translateMatches(sourceSystem, translations)
}

// -- CodeSystem / ConceptMap resources --

func (h *Handler) GetCodeSystem(c echo.Context) error {
	records, err := h.svc.Records()
	if err != nil {
		return h.notReady(c, err)
	}
	concepts := make([]fhir.Concept, 0, len(records))
	for _, r := range records {
		concepts = append(concepts, fhir.Concept{Code: r.Code, Display: r.Display, Definition: r.Definition})
	}
	return c.JSON(http.StatusOK, fhir.NewCodeSystem(concepts, time.Now().UTC()))
}

func (h *Handler) GetConceptMap(c echo.Context) error {
	records, err := h.svc.Records()
	if err != nil {
		return h.notReady(c, err)
	}
	elements := make([]fhir.MapElement, 0, len(records))
	for _, r := range records {
		elements = append(elements, fhir.MapElement{
			Code:    r.Code,
			Display: r.Display,
			Targets: []fhir.MapTarget{
				{Code: r.TM2Code, Display: "ICD-11 TM2: " + r.TM2Code, Comment: "Traditional Medicine 2 (TM2) mapping"},
				{Code: r.BiomedCode, Display: "ICD-11 Biomedicine: " + r.BiomedCode, Comment: "Biomedicine mapping"},
			},
		})
	}
	return c.JSON(http.StatusOK, fhir.NewConceptMap(elements, time.Now().UTC()))
}

func (h *Handler) LookupOperation(c echo.Context) error {
	code := c.QueryParam("code")
	record, ok, err := h.svc.Lookup(code)
	if err != nil {
		return h.notReady(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("code "+code+" not found"))
	}
	return c.JSON(http.StatusOK, fhir.NewLookupParameters(record.Display, record.Definition))
}

func (h *Handler) ValidateCodeOperation(c echo.Context) error {
	code := c.QueryParam("code")
	display := c.QueryParam("display")
	valid, record, err := h.svc.ValidateCode(code, display)
	if err != nil {
		return h.notReady(c, err)
	}
	message := ""
	if !valid {
		message = "code " + code + " is not valid in the NAMASTE code system"
	}
	return c.JSON(http.StatusOK, fhir.NewValidateCodeParameters(valid, record.Display, message))
}

// -- Condition / Bundle --

func (h *Handler) CreateCondition(c echo.Context) error {
	var req struct {
		PatientRef string `json:"patient_ref"`
		Code       string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("invalid request body"))
	}
	if req.PatientRef == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("patient_ref and code are required"))
	}

	record, ok, err := h.svc.Lookup(req.Code)
	if err != nil {
		return h.notReady(c, err)
	}
	if !ok {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("code "+req.Code+" not found"))
	}

	condition := fhir.NewCondition(fhir.ConditionInput{
		PatientRef:    req.PatientRef,
		Code:          record.Code,
		Display:       record.Display,
		TM2Code:       mappedOrEmpty(record.TM2Code),
		TM2Display:    record.TM2Display,
		BiomedCode:    mappedOrEmpty(record.BiomedCode),
		BiomedDisplay: record.BiomedDisplay,
		RecordedAt:    time.Now().UTC(),
	})
	return c.JSON(http.StatusCreated, condition)
}

func mappedOrEmpty(code string) string {
	if code == CodeUnknown {
		return ""
	}
	return code
}

func (h *Handler) UploadBundle(c echo.Context) error {
	var bundle map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&bundle); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("invalid JSON body"))
	}
	if err := fhir.StampBundle(bundle, time.Now()); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("invalid FHIR Bundle"))
	}
	h.logger.Info().Interface("bundle_type", bundle["type"]).Msg("bundle uploaded")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "uploaded",
		"bundle": bundle,
	})
}

// -- Analytics / cache --

func (h *Handler) Analytics(c echo.Context) error {
	analytics, err := h.svc.Analytics()
	if err != nil {
		return h.notReady(c, err)
	}

	observation := map[string]interface{}{
		"resourceType": fhirmodels.ResourceObservation,
		"status":       "final",
		"code": map[string]interface{}{
			"coding": []interface{}{
				map[string]interface{}{"system": "http://ayush.gov.in", "code": "morbidity-stats"},
			},
		},
		"value": analytics,
		"chart": chartConfig(analytics.ByDisease),
	}
	return c.JSON(http.StatusOK, observation)
}

// chartConfig mirrors the morbidity bar chart served to the demo UI.
func chartConfig(byDisease map[string]int) map[string]interface{} {
	labels := make([]string, 0, len(byDisease))
	for disease := range byDisease {
		labels = append(labels, disease)
	}
	sort.Strings(labels)
	counts := make([]int, 0, len(labels))
	for _, disease := range labels {
		counts = append(counts, byDisease[disease])
	}

	palette := []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF"}
	colors := make([]string, 0, len(labels))
	for i := range labels {
		colors = append(colors, palette[i%len(palette)])
	}

	return map[string]interface{}{
		"type": "bar",
		"data": map[string]interface{}{
			"labels": labels,
			"datasets": []interface{}{
				map[string]interface{}{
					"label":           "Disease Counts",
					"data":            counts,
					"backgroundColor": colors,
					"borderColor":     colors,
					"borderWidth":     1,
				},
			},
		},
		"options": map[string]interface{}{
			"scales": map[string]interface{}{
				"y": map[string]interface{}{
					"beginAtZero": true,
					"title":       map[string]interface{}{"display": true, "text": "Number of Patients"},
				},
				"x": map[string]interface{}{
					"title": map[string]interface{}{"display": true, "text": "Disease"},
				},
			},
			"plugins": map[string]interface{}{
				"title":  map[string]interface{}{"display": true, "text": "NAMASTE Morbidity by Disease"},
				"legend": map[string]interface{}{"display": true, "position": "top"},
			},
		},
	}
}

func (h *Handler) CacheSummary(c echo.Context) error {
	summary, err := h.svc.CacheSummary()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, summary)
}

// -- helpers --

func (h *Handler) notReady(c echo.Context, err error) error {
	if errors.Is(err, ErrNotLoaded) {
		return c.JSON(http.StatusServiceUnavailable, fhir.NotReadyOutcome())
	}
	return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
}

func intParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
