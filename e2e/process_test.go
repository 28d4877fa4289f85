package e2e

import (
	"net/http"
	"strings"
	"testing"
)

func validProcessBody() string {
	return `{"url": "https://example.com/v1", "format": "mp4", "quality": "1080p", "title": "Test"}`
}

func TestProcessStart_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/process", validProcessBody())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusAccepted)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
}

func TestProcessStart_MissingURL(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/process", `{"format": "mp4"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected error code VALIDATION_ERROR, got %v", errObj["code"])
	}

	if jobs := ta.store.Live(); len(jobs) != 0 {
		t.Errorf("no job may be created for a rejected request, found %d", len(jobs))
	}
}

func TestProcessStatus_ImmediatelyProcessing(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/process", validProcessBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/process/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "processing" && result["status"] != "ready" {
		t.Errorf("expected processing (or already ready), got %v", result["status"])
	}
}

func TestProcessStatus_NotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/process/never-issued", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("expected error code NOT_FOUND, got %v", errObj["code"])
	}
}

func TestProcess_FullLifecycle(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/process", validProcessBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	final := pollStatus(t, ta.app, jobID, func(s map[string]interface{}) bool {
		return s["status"] == "ready"
	})
	if final["progress"].(float64) != 100 {
		t.Errorf("expected progress 100 when ready, got %v", final["progress"])
	}

	// Retrieve the artifact under its synthesized name.
	resp, err = doRequest(ta.app, http.MethodGet, "/api/serve/"+jobID, "")
	if err != nil {
		t.Fatalf("serve request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `"test.mp4"`) {
		t.Errorf("expected Content-Disposition suggesting test.mp4, got %q", cd)
	}
	if body := readBody(t, resp); body != "fake media payload" {
		t.Errorf("unexpected artifact body %q", body)
	}

	// The job is consumed: further polls and serves read as gone.
	resp, err = doRequest(ta.app, http.MethodGet, "/api/process/"+jobID, "")
	if err != nil {
		t.Fatalf("post-serve status request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/serve/"+jobID, "")
	if err != nil {
		t.Fatalf("post-serve serve request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestProcess_FailedJob(t *testing.T) {
	ta := setupAppWithStub(t, failingStub)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/process", validProcessBody())
	if err != nil {
		t.Fatalf("start request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	jobID := parseJSON(t, resp)["jobId"].(string)

	final := pollStatus(t, ta.app, jobID, func(s map[string]interface{}) bool {
		return s["status"] == "error"
	})
	if final["error"] != "Exit code 1" {
		t.Errorf("expected error 'Exit code 1', got %v", final["error"])
	}

	// A failed job is not-ready on serve, not not-found.
	resp, err = doRequest(ta.app, http.MethodGet, "/api/serve/"+jobID, "")
	if err != nil {
		t.Fatalf("serve request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)

	// Its terminal state keeps reading back identically until consumed.
	resp, err = doRequest(ta.app, http.MethodGet, "/api/process/"+jobID, "")
	if err != nil {
		t.Fatalf("status request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if s := parseJSON(t, resp); s["status"] != "error" {
		t.Errorf("expected stable error state, got %v", s["status"])
	}
}

func TestProcess_TwoConcurrentJobsStayIsolated(t *testing.T) {
	ta := setupApp(t)

	start := func(url string) string {
		resp, err := doRequest(ta.app, http.MethodPost, "/api/process",
			`{"url": "`+url+`", "format": "mp4", "quality": "720p", "title": "Job"}`)
		if err != nil {
			t.Fatalf("start request failed: %v", err)
		}
		assertStatus(t, resp, http.StatusAccepted)
		return parseJSON(t, resp)["jobId"].(string)
	}

	jobA := start("https://example.com/a")
	jobB := start("https://example.com/b")
	if jobA == jobB {
		t.Fatal("expected distinct job ids")
	}

	pollStatus(t, ta.app, jobA, func(s map[string]interface{}) bool { return s["status"] == "ready" })
	pollStatus(t, ta.app, jobB, func(s map[string]interface{}) bool { return s["status"] == "ready" })
}

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["status"] != "ok" {
		t.Errorf("expected status ok, got %v", result["status"])
	}
	if result["ytdlp"] != "2026.08.01" {
		t.Errorf("expected stub version, got %v", result["ytdlp"])
	}
}

func TestMetadata(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/metadata", `{"url": "https://example.com/v1"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["title"] != "Test Video" {
		t.Errorf("expected title from dump-json, got %v", result["title"])
	}
	if result["channel"] != "Test Channel" {
		t.Errorf("expected channel from dump-json, got %v", result["channel"])
	}
	if result["platform"] != "Youtube" {
		t.Errorf("expected platform from dump-json, got %v", result["platform"])
	}
}
