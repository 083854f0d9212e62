package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
)

func TestMaterialListAndGet(t *testing.T) {
	svc := newFakeMaterialService()

	resp := httptest.NewRecorder()
	MaterialList(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/materials", nil))
	var list struct {
		Data struct {
			Materials []struct {
				Name     string `json:"name"`
				UnitCost string `json:"unit_cost"`
			} `json:"materials"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data.Materials) != 2 || list.Data.Materials[0].UnitCost != "0.9" {
		t.Fatalf("unexpected list %s", resp.Body.String())
	}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/materials/Flour", nil), "name", "Flour")
	resp = httptest.NewRecorder()
	MaterialGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/materials/saffron", nil), "name", "saffron")
	resp = httptest.NewRecorder()
	MaterialGet(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMaterialSearchSanitizesQuery(t *testing.T) {
	svc := newFakeMaterialService()
	resp := httptest.NewRecorder()
	MaterialSearch(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/materials/search?q=+fl+", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastQuery != "fl" {
		t.Fatalf("expected trimmed query, got %q", svc.lastQuery)
	}
}

func TestMaterialSetAddsWithUnit(t *testing.T) {
	svc := newFakeMaterialService()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/materials/honey", strings.NewReader(`{"unit":"kg","unit_cost":"7.25"}`))
	req = withURLParam(req, "name", "honey")
	resp := httptest.NewRecorder()
	MaterialSet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastSet == nil || svc.lastSet.Name != "honey" || svc.lastSet.UnitCost.String() != "7.25" {
		t.Fatalf("unexpected set input %+v", svc.lastSet)
	}
	if svc.lastCost != nil {
		t.Fatalf("update cost should not be used when a unit is given")
	}
}

func TestMaterialSetUpdatesCostOnly(t *testing.T) {
	svc := newFakeMaterialService()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/materials/flour", strings.NewReader(`{"unit_cost":1.05}`))
	req = withURLParam(req, "name", "flour")
	resp := httptest.NewRecorder()
	MaterialSet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastCost == nil || svc.lastCost.String() != "1.05" {
		t.Fatalf("expected cost update, got %v", svc.lastCost)
	}
	if svc.records["flour"].UnitCost.String() != "1.05" {
		t.Fatalf("cost not stored")
	}
}

func TestMaterialSetRequiresCost(t *testing.T) {
	svc := newFakeMaterialService()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/materials/flour", strings.NewReader(`{"unit":"kg"}`))
	req = withURLParam(req, "name", "flour")
	resp := httptest.NewRecorder()
	MaterialSet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	body := decodeError(t, resp.Body.Bytes())
	if body.Error.Code != string(pkgerrors.CodeValidation) || body.Error.Details["unit_cost"] != "is required" {
		t.Fatalf("unexpected error %+v", body.Error)
	}
}

func TestMaterialSetRejectsUnknownUnit(t *testing.T) {
	svc := newFakeMaterialService()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/materials/honey", strings.NewReader(`{"unit":"cup","unit_cost":"1"}`))
	req = withURLParam(req, "name", "honey")
	resp := httptest.NewRecorder()
	MaterialSet(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
