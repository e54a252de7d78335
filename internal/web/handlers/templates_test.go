package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/database"
)

func TestTemplatesHandler_Open(t *testing.T) {
	env := newTestEnv(t)

	recorder := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPost, "/api/v1/templates", map[string]string{"owner_id": "m1", "owner_kind": "market"})
	env.handler.Open(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var snap booth.ViewSnapshot
	parseJSONResponse(t, recorder, &snap)
	if snap.ID == "" || snap.Owner.ID != "m1" || len(snap.Slots) != 9 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if env.registry.Get(snap.ID) == nil {
		t.Error("expected view registered")
	}
}

func TestTemplatesHandler_OpenInvalid(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"missing owner", map[string]string{"owner_kind": "market"}, http.StatusBadRequest},
		{"bad kind", map[string]string{"owner_id": "m1", "owner_kind": "party"}, http.StatusBadRequest},
		{"not json", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			env.handler.Open(recorder, jsonRequest(t, http.MethodPost, "/api/v1/templates", tt.body))
			assertStatusCode(t, recorder, tt.want)
		})
	}
}

func TestTemplatesHandler_GetAndClose(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")

	recorder := httptest.NewRecorder()
	env.handler.Get(recorder, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = httptest.NewRecorder()
	env.handler.Close(recorder, requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusNoContent)

	recorder = httptest.NewRecorder()
	env.handler.Get(recorder, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "template not found")
}

func TestTemplatesHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.openView(t, "m1")
	env.openView(t, "m2")

	recorder := httptest.NewRecorder()
	env.handler.List(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))

	var snaps []booth.ViewSnapshot
	parseJSONResponse(t, recorder, &snaps)
	if len(snaps) != 2 || snaps[0].Owner.ID != "m1" {
		t.Errorf("expected two views in open order, got %+v", snaps)
	}
}

func TestTemplatesHandler_SetOwner(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")

	recorder := httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPut, "/", map[string]string{"owner_id": "e1", "owner_kind": "event"})
	env.handler.SetOwner(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))

	assertStatusCode(t, recorder, http.StatusOK)
	if v.Owner().ID != "e1" || v.Owner().Kind != database.OwnerEvent {
		t.Errorf("expected owner e1/event, got %+v", v.Owner())
	}
}

func addPhoto(t *testing.T, env *testEnv, v *booth.View, index string) map[string]any {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := multipartRequest(t, "/", encodePNG(8, 8), map[string]string{"index": index})
	env.handler.AddPhoto(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusCreated)
	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	return result
}

func TestTemplatesHandler_AddPhoto(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")

	result := addPhoto(t, env, v, "4")
	if result["slot"] != float64(4) {
		t.Errorf("expected slot 4, got %v", result["slot"])
	}
	photo := result["photo"].(map[string]any)
	stored := env.store.Photo(photo["id"].(string))
	if stored == nil || stored.Origin != database.OriginUpload || stored.Status != database.StatusInTemplate {
		t.Errorf("unexpected stored photo %+v", stored)
	}
}

func TestTemplatesHandler_AddPhotoErrors(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")

	recorder := httptest.NewRecorder()
	req := multipartRequest(t, "/", []byte("not an image"), nil)
	env.handler.AddPhoto(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusBadRequest)

	recorder = httptest.NewRecorder()
	req = multipartRequest(t, "/", nil, nil)
	env.handler.AddPhoto(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "file is required")

	recorder = httptest.NewRecorder()
	req = multipartRequest(t, "/", encodePNG(4, 4), map[string]string{"index": "12"})
	env.handler.AddPhoto(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestTemplatesHandler_AddPhotoNoEmptySlot(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")
	addPhoto(t, env, v, "8")

	recorder := httptest.NewRecorder()
	req := multipartRequest(t, "/", encodePNG(8, 8), map[string]string{"index": "8"})
	env.handler.AddPhoto(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestTemplatesHandler_DuplicateRemoveReorder(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")
	addPhoto(t, env, v, "0")

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": v.ID, "index": "0"})
	env.handler.Duplicate(recorder, req)
	assertStatusCode(t, recorder, http.StatusCreated)

	recorder = httptest.NewRecorder()
	req = jsonRequest(t, http.MethodPost, "/", map[string]int{"from": 1, "to": 5})
	env.handler.Reorder(recorder, requestWithChiParams(req, map[string]string{"id": v.ID}))
	assertStatusCode(t, recorder, http.StatusOK)
	if slots := v.Manager.Slots(); slots[5].Photo == nil || !slots[5].Duplicate {
		t.Errorf("expected duplicate moved to slot 5, got %+v", slots)
	}

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": v.ID, "index": "0"})
	env.handler.RemoveSlot(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	if v.Manager.EmptyCount() != 8 {
		t.Errorf("expected one copy left, got %d empty", v.Manager.EmptyCount())
	}

	recorder = httptest.NewRecorder()
	req = requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": v.ID, "index": "3"})
	env.handler.RemoveSlot(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestTemplatesHandler_RemovePersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")
	addPhoto(t, env, v, "2")
	env.store.UpdateByIDsError = errors.New("db down")

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": v.ID, "index": "2"})
	env.handler.RemoveSlot(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadGateway)
	if v.Manager.Slots()[2].Photo == nil {
		t.Error("expected slot restored after failed delete")
	}
}

func TestTemplatesHandler_Edits(t *testing.T) {
	env := newTestEnv(t)
	v := env.openView(t, "m1")
	photoID := addPhoto(t, env, v, "0")["photo"].(map[string]any)["id"].(string)
	params := map[string]string{"id": v.ID, "photoId": photoID}

	recorder := httptest.NewRecorder()
	env.handler.ZoomIn(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), params))
	assertStatusCode(t, recorder, http.StatusOK)
	var state booth.EditState
	parseJSONResponse(t, recorder, &state)
	if state.Zoom != 1.1 || !state.Dirty {
		t.Errorf("expected dirty zoom 1.1, got %+v", state)
	}

	recorder = httptest.NewRecorder()
	req := jsonRequest(t, http.MethodPut, "/", booth.Transform{X: 12, Y: -4, Zoom: 1.5})
	env.handler.SetTransform(recorder, requestWithChiParams(req, params))
	parseJSONResponse(t, recorder, &state)
	if state.X != 12 || state.Y != -4 || state.Zoom != 1.5 {
		t.Errorf("unexpected transform %+v", state)
	}

	recorder = httptest.NewRecorder()
	env.handler.SaveTransform(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), params))
	assertStatusCode(t, recorder, http.StatusOK)
	if got := env.store.Photo(photoID); got == nil || got.Scale != 1.5 {
		t.Errorf("expected scale 1.5 persisted, got %+v", got)
	}

	recorder = httptest.NewRecorder()
	env.handler.ResetTransform(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil), params))
	parseJSONResponse(t, recorder, &state)
	if state.Transform != booth.DefaultTransform() {
		t.Errorf("expected default transform, got %+v", state.Transform)
	}

	recorder = httptest.NewRecorder()
	env.handler.ZoomOut(recorder, requestWithChiParams(httptest.NewRequest(http.MethodPost, "/", nil),
		map[string]string{"id": v.ID, "photoId": "elsewhere"}))
	assertStatusCode(t, recorder, http.StatusNotFound)
}
