package terminology

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const handlerCSV = "Code,Disease,Short_Definition,State\nAA,Vatavyadhi,vata disorders,Kerala\nEA-3,Kasa,cough disorder,Punjab\n"

func newTestServer(t *testing.T, ingested bool) (*echo.Echo, *Service) {
	t.Helper()
	svc := newTestService(t, nil)
	if ingested {
		if _, err := svc.Ingest(context.Background(), sampleRows()); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	e := echo.New()
	h := NewHandler(svc, zerolog.Nop())
	h.RegisterRoutes(e.Group("/api/v1"), e.Group("/fhir"))
	return e, svc
}

func doJSON(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestIngestNamasteEndpoint(t *testing.T) {
	e, svc := newTestServer(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "namaste.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(handlerCSV))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest-namaste", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" || body["records"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if !svc.Loaded() {
		t.Error("service not loaded after ingest")
	}
}

func TestIngestNamasteRejectsMissingFile(t *testing.T) {
	e, _ := newTestServer(t, false)
	rec := doJSON(e, http.MethodPost, "/api/v1/ingest-namaste", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodGet, "/api/v1/terminology/search?q=vata&limit=5&threshold=60", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total"] != float64(1) {
		t.Errorf("total = %v", body["total"])
	}
	results := body["results"].([]interface{})
	first := results[0].(map[string]interface{})
	if first["code"] != "AA" || first["match_type"] != "EXACT" {
		t.Errorf("first result = %v", first)
	}
}

func TestSearchEndpointNotReady(t *testing.T) {
	e, _ := newTestServer(t, false)
	rec := doJSON(e, http.MethodGet, "/api/v1/terminology/search?q=vata", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "OperationOutcome" {
		t.Errorf("body = %v", body)
	}
}

func TestValueSetLookupEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)
	rec := doJSON(e, http.MethodPost, "/api/v1/valueset-lookup", map[string]string{"term": "cough"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "ValueSet" {
		t.Errorf("resourceType = %v", body["resourceType"])
	}
	expansion := body["expansion"].(map[string]interface{})
	contains := expansion["contains"].([]interface{})
	if len(contains) != 1 {
		t.Fatalf("contains = %d entries", len(contains))
	}
	entry := contains[0].(map[string]interface{})
	if entry["code"] != "EA-3" {
		t.Errorf("entry = %v", entry)
	}
	exts := entry["extension"].([]interface{})
	tm2 := exts[0].(map[string]interface{})
	if tm2["valueCode"] != "SB00" {
		t.Errorf("tm2 extension = %v", tm2)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	t.Run("namaste code", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/translate", map[string]string{"code": "AA", "system": "namaste"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		matches := body["match"].([]interface{})
		if len(matches) != 2 {
			t.Fatalf("matches = %d, want tm2 + biomed", len(matches))
		}
	})

	t.Run("icd11 code", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/translate", map[string]string{"code": "SP10", "system": "icd11"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/translate", map[string]string{"code": "missing", "system": "namaste"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("bad system", func(t *testing.T) {
		rec := doJSON(e, http.MethodPost, "/api/v1/translate", map[string]string{"code": "AA", "system": "snomed"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestTranslateOperationEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodGet, "/fhir/ConceptMap/$translate?code=AA&system=namaste&target=tm2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "Parameters" {
		t.Errorf("resourceType = %v", body["resourceType"])
	}
	params := body["parameter"].([]interface{})
	result := params[0].(map[string]interface{})
	if result["valueBoolean"] != true {
		t.Errorf("result parameter = %v", result)
	}

	rec = doJSON(e, http.MethodGet, "/fhir/ConceptMap/$translate?code=AA&system=tm2&target=biomedicine", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported direction status = %d", rec.Code)
	}
}

func TestCodeSystemAndConceptMapEndpoints(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodGet, "/fhir/CodeSystem/namaste", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "CodeSystem" || body["count"] != float64(2) {
		t.Errorf("codesystem = %v", body)
	}

	rec = doJSON(e, http.MethodGet, "/fhir/ConceptMap/namaste-icd11", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body = decodeBody(t, rec)
	if body["resourceType"] != "ConceptMap" {
		t.Errorf("conceptmap = %v", body)
	}
}

func TestLookupAndValidateEndpoints(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodGet, "/fhir/CodeSystem/$lookup?code=AA", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/fhir/CodeSystem/$lookup?code=missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("lookup missing status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/fhir/CodeSystem/$validate-code?code=AA&display=Vatavyadhi", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	result := body["parameter"].([]interface{})[0].(map[string]interface{})
	if result["valueBoolean"] != true {
		t.Errorf("validate result = %v", result)
	}
}

func TestExpandEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)
	rec := doJSON(e, http.MethodGet, "/fhir/ValueSet/$expand?filter=vata&count=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	expansion := body["expansion"].(map[string]interface{})
	if expansion["total"] != float64(1) {
		t.Errorf("total = %v", expansion["total"])
	}
}

func TestConditionEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodPost, "/api/v1/condition", map[string]string{
		"patient_ref": "Patient/abha-42",
		"code":        "AA",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "Condition" {
		t.Errorf("resourceType = %v", body["resourceType"])
	}
	coding := body["code"].(map[string]interface{})["coding"].([]interface{})
	if len(coding) != 3 {
		t.Errorf("codings = %d, want namaste + tm2 + biomed", len(coding))
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/condition", map[string]string{"patient_ref": "Patient/x", "code": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing code status = %d", rec.Code)
	}
}

func TestUploadBundleEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	rec := doJSON(e, http.MethodPost, "/api/v1/upload-bundle", map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "transaction",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	bundle := body["bundle"].(map[string]interface{})
	meta := bundle["meta"].(map[string]interface{})
	if meta["versionId"] != "1" {
		t.Errorf("meta = %v", meta)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/upload-bundle", map[string]interface{}{"resourceType": "Patient"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-bundle status = %d", rec.Code)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)
	rec := doJSON(e, http.MethodGet, "/api/v1/analytics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["resourceType"] != "Observation" || body["status"] != "final" {
		t.Errorf("observation = %v", body)
	}
	value := body["value"].(map[string]interface{})
	if value["total_patients"] != float64(3) {
		t.Errorf("total_patients = %v", value["total_patients"])
	}
	chart := body["chart"].(map[string]interface{})
	if chart["type"] != "bar" {
		t.Errorf("chart = %v", chart)
	}
}

func TestCacheSummaryEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)
	rec := doJSON(e, http.MethodGet, "/api/v1/cache-summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "memory") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
