// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/campus-mess/models"
	"github.com/danielhkuo/campus-mess/testutil"
)

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t)
	h := NewSuggestionHandler(env.store)

	add := func(name string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/v1/admin/suggestions", models.SuggestionRequest{Name: name}, nil)
		w := httptest.NewRecorder()
		h.Add(w, req)
		return w
	}

	w := add("paneer tikka")
	testutil.AssertStatus(t, w, http.StatusCreated)
	var paneer models.Suggestion
	testutil.AssertJSON(t, w, &paneer)

	testutil.AssertStatus(t, add("  Aloo Paratha "), http.StatusCreated)
	testutil.AssertStatus(t, add("Paneer Tikka"), http.StatusConflict)
	testutil.AssertStatus(t, add("   "), http.StatusBadRequest)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/v1/suggestions", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var list []models.Suggestion
	testutil.AssertJSON(t, w, &list)
	if len(list) != 2 || list[0].Name != "Aloo Paratha" || list[1].ID != paneer.ID {
		t.Fatalf("suggestions = %+v", list)
	}

	del := func(id string) *httptest.ResponseRecorder {
		req := withParams(httptest.NewRequest("DELETE", "/", nil), map[string]string{"id": id})
		w := httptest.NewRecorder()
		h.Delete(w, req)
		return w
	}
	testutil.AssertStatus(t, del(paneer.ID), http.StatusNoContent)
	testutil.AssertStatus(t, del(paneer.ID), http.StatusNotFound)
	testutil.AssertStatus(t, del("bad.id"), http.StatusNotFound)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/v1/suggestions", nil))
	testutil.AssertJSON(t, w, &list)
	if len(list) != 1 {
		t.Errorf("suggestions after delete = %+v", list)
	}
}
