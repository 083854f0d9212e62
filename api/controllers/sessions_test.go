package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
)

func TestSessionMessage(t *testing.T) {
	svc := &fakeIntake{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/messages", strings.NewReader(`{"message":"job_type: cake"}`))
	req = withURLParam(req, "sessionId", "abc")
	resp := httptest.NewRecorder()
	SessionMessage(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastID != "abc" || svc.lastText != "job_type: cake" {
		t.Fatalf("unexpected call %q %q", svc.lastID, svc.lastText)
	}
	if !strings.Contains(resp.Body.String(), `"state":"collecting_fields"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestSessionMessageInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/bad%20id/messages", strings.NewReader(`{"message":"hi"}`))
	req = withURLParam(req, "sessionId", "bad id")
	resp := httptest.NewRecorder()
	SessionMessage(&fakeIntake{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSessionGetAndDelete(t *testing.T) {
	svc := &fakeIntake{sessions: map[string]*intake.Session{
		"abc": {ID: "abc", State: enums.IntakeConfirming},
	}}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil), "sessionId", "abc")
	resp := httptest.NewRecorder()
	SessionGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/zzz", nil), "sessionId", "zzz")
	resp = httptest.NewRecorder()
	SessionGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/abc", nil), "sessionId", "abc")
	resp = httptest.NewRecorder()
	SessionDelete(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if len(svc.resetIDs) != 1 || svc.resetIDs[0] != "abc" {
		t.Fatalf("unexpected resets %v", svc.resetIDs)
	}
}
