package integration

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/atlas-packer/internal/api"
	"github.com/eugenenazirov/atlas-packer/internal/storage"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	store := storage.NewMemoryStore(storage.Limits{})
	handler := api.NewHandler(store, api.CanvasDefaults{Height: 64, Width: 64})
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func TestIntegrationFlow(t *testing.T) {
	handler := newRouter(t)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	// Create a canvas with the service defaults.
	rec = performRequest(t, handler, http.MethodPost, "/api/canvases", nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from canvas create, got %d", rec.Code)
	}
	var created struct {
		ID     string `json:"id"`
		Height int    `json:"height"`
		Width  int    `json:"width"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.Height != 64 || created.Width != 64 {
		t.Fatalf("unexpected canvas %+v", created)
	}
	base := "/api/canvases/" + created.ID

	// Pin the first rectangle, then let the engine pick a spot for the second.
	payload, _ := json.Marshal(map[string]any{"id": 1, "y": 0, "x": 0, "height": 8, "width": 8})
	rec = performRequest(t, handler, http.MethodPost, base+"/rectangles", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from exact placement, got %d", rec.Code)
	}

	payload, _ = json.Marshal(map[string]any{"height": 8, "width": 8})
	rec = performRequest(t, handler, http.MethodPost, base+"/rectangles", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from best placement, got %d", rec.Code)
	}
	var placed struct {
		Placed    bool `json:"placed"`
		Rectangle *struct {
			ID int `json:"id"`
		} `json:"rectangle"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&placed); err != nil {
		t.Fatalf("decode placement response: %v", err)
	}
	if !placed.Placed || placed.Rectangle == nil || placed.Rectangle.ID != 2 {
		t.Fatalf("unexpected placement %+v", placed)
	}

	// Fill in ten more generated rectangles.
	payload, _ = json.Marshal(map[string]any{"baseSize": 8, "seed": 7, "maxPlacements": 10})
	rec = performRequest(t, handler, http.MethodPost, base+"/fill", payload, jsonHeaders)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from fill, got %d", rec.Code)
	}
	var filled struct {
		Placed    int     `json:"placed"`
		Attempts  int     `json:"attempts"`
		FillRatio float64 `json:"fillRatio"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&filled); err != nil {
		t.Fatalf("decode fill response: %v", err)
	}
	if filled.Placed != 10 || filled.Attempts != 10 {
		t.Fatalf("unexpected fill result %+v", filled)
	}

	// The detail view reports every rectangle placed so far.
	rec = performRequest(t, handler, http.MethodGet, base, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from canvas detail, got %d", rec.Code)
	}
	var detail struct {
		Placed     int              `json:"placed"`
		FillRatio  float64          `json:"fillRatio"`
		Rectangles []map[string]any `json:"rectangles"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail response: %v", err)
	}
	if detail.Placed != 12 || len(detail.Rectangles) != 12 {
		t.Fatalf("expected 12 rectangles, got %+v", detail)
	}
	if detail.FillRatio <= 0 {
		t.Fatalf("expected positive fill ratio, got %v", detail.FillRatio)
	}

	// Both render formats are served for the same canvas.
	rec = performRequest(t, handler, http.MethodGet, base+"/image.png?scale=2", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from image render, got %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 128 {
		t.Fatalf("expected 128x128 image, got %v", img.Bounds())
	}

	rec = performRequest(t, handler, http.MethodGet, base+"/layout.pdf", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from PDF render, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF magic bytes")
	}

	// Delete and verify the canvas is gone.
	rec = performRequest(t, handler, http.MethodDelete, base, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from delete, got %d", rec.Code)
	}
	rec = performRequest(t, handler, http.MethodGet, base, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
