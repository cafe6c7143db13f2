package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/eugenenazirov/atlas-packer/internal/generator"
	"github.com/eugenenazirov/atlas-packer/internal/packing"
	"github.com/eugenenazirov/atlas-packer/internal/render"
	"github.com/eugenenazirov/atlas-packer/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// maxImagePixels caps the PNG endpoint output so an oversize scale cannot
// exhaust memory.
const maxImagePixels = 1 << 25

// CanvasDefaults fill in fields omitted from canvas creation requests.
type CanvasDefaults struct {
	Height       int
	Width        int
	ContactDepth int
}

// Handler wires the canvas store into HTTP handlers.
type Handler struct {
	store    storage.Store
	defaults CanvasDefaults

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(store storage.Store, defaults CanvasDefaults, opts ...HandlerOption) *Handler {
	if defaults.Height < 1 {
		defaults.Height = 320
	}
	if defaults.Width < 1 {
		defaults.Width = 320
	}
	if defaults.ContactDepth < 1 {
		defaults.ContactDepth = packing.DefaultContactDepth
	}

	h := &Handler{
		store:    store,
		defaults: defaults,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateCanvas(w http.ResponseWriter, r *http.Request) {
	var req createCanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.Height == 0 {
		req.Height = h.defaults.Height
	}
	if req.Width == 0 {
		req.Width = h.defaults.Width
	}
	if req.ContactDepth == 0 {
		req.ContactDepth = h.defaults.ContactDepth
	}

	canvas, err := h.store.Create(req.Height, req.Width, req.ContactDepth)
	if err != nil {
		switch {
		case errors.Is(err, packing.ErrInvalidDimension):
			writeError(w, http.StatusBadRequest, "Invalid canvas dimensions", err.Error())
		case errors.Is(err, storage.ErrCanvasTooLarge):
			suggestion := "Reduce the canvas dimensions or raise MAX_CANVAS_AREA"
			writeError(w, http.StatusUnprocessableEntity, "Canvas too large", err.Error(), suggestion)
		case errors.Is(err, storage.ErrTooManyCanvases):
			suggestion := "Delete an unused canvas and retry"
			writeError(w, http.StatusConflict, "Canvas limit reached", err.Error(), suggestion)
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, summarizeCanvas(canvas))
}

func (h *Handler) handleListCanvases(w http.ResponseWriter, r *http.Request) {
	_ = r
	canvases := h.store.List()
	resp := listCanvasesResponse{
		Canvases: make([]canvasSummary, 0, len(canvases)),
		Count:    len(canvases),
	}
	for _, canvas := range canvases {
		resp.Canvases = append(resp.Canvases, summarizeCanvas(canvas))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.canvasFromPath(w, r)
	if !ok {
		return
	}

	resp := canvasDetail{
		canvasSummary: summarizeCanvas(canvas),
		Rectangles:    canvas.Rects(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Canvas not found", fmt.Sprintf("no canvas with id %q", id))
			return
		}
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePlaceRectangle(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.canvasFromPath(w, r)
	if !ok {
		return
	}

	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if req.Height < 1 || req.Width < 1 {
		writeError(w, http.StatusBadRequest, "Invalid rectangle", "height and width must be positive integers")
		return
	}
	if (req.Y == nil) != (req.X == nil) {
		writeError(w, http.StatusBadRequest, "Invalid rectangle", "y and x must be provided together")
		return
	}

	var (
		rect     packing.Rect
		placed   bool
		placeErr error
		exact    = req.Y != nil
	)
	switch {
	case exact && req.ID != nil:
		rect, placed, placeErr = canvas.TryPlace(*req.ID, *req.Y, *req.X, req.Height, req.Width)
	case exact:
		rect, placed, placeErr = canvas.TryPlaceNext(*req.Y, *req.X, req.Height, req.Width)
	case req.ID != nil:
		rect, placed, placeErr = canvas.PlaceBest(*req.ID, req.Height, req.Width)
	default:
		rect, placed, placeErr = canvas.PlaceNext(req.Height, req.Width)
	}

	if placeErr != nil {
		switch {
		case errors.Is(placeErr, packing.ErrInvalidDimension):
			writeError(w, http.StatusBadRequest, "Invalid rectangle", placeErr.Error())
		case errors.Is(placeErr, packing.ErrDuplicateID):
			suggestion := "Omit the id field to have one assigned automatically"
			writeError(w, http.StatusConflict, "Duplicate rectangle id", placeErr.Error(), suggestion)
		default:
			writeInternalError(w, placeErr)
		}
		return
	}

	resp := placeResponse{
		Placed:    placed,
		FillRatio: canvas.Stats().FillRatio,
	}
	if placed {
		resp.Rectangle = &rect
	} else if exact {
		resp.Reason = "the requested region is occupied or out of bounds"
	} else {
		resp.Reason = "no free position with positive contact remains"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFillCanvas(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.canvasFromPath(w, r)
	if !ok {
		return
	}

	var req fillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	seed := req.Seed
	if seed == 0 {
		seed = h.clock().UnixNano()
	}
	gen := generator.New(generator.Config{
		BaseSize:    req.BaseSize,
		HeightSigma: req.HeightSigma,
		WidthSigma:  req.WidthSigma,
		MinSide:     req.MinSide,
	}, seed)

	result, err := canvas.Fill(gen.Next, req.MaxPlacements)
	if err != nil {
		if errors.Is(err, packing.ErrInvalidDimension) {
			writeError(w, http.StatusBadRequest, "Invalid size distribution", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	resp := fillResponse{
		Placed:    result.Placed,
		Attempts:  result.Attempts,
		ElapsedMs: result.Elapsed.Milliseconds(),
		FillRatio: result.FillRatio,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCanvasImage(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.canvasFromPath(w, r)
	if !ok {
		return
	}

	scale := 1
	if raw := r.URL.Query().Get("scale"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > render.MaxScale {
			details := fmt.Sprintf("scale must be an integer between 1 and %d", render.MaxScale)
			writeError(w, http.StatusBadRequest, "Invalid scale", details)
			return
		}
		scale = value
	}
	labels := false
	if raw := r.URL.Query().Get("labels"); raw != "" {
		labels, _ = strconv.ParseBool(raw)
	}

	if canvas.Height()*scale*canvas.Width()*scale > maxImagePixels {
		writeError(w, http.StatusUnprocessableEntity, "Image too large", "lower the scale or use the PDF layout instead")
		return
	}

	opts := []render.ImageOption{render.WithScale(scale)}
	if labels {
		opts = append(opts, render.WithLabels())
	}

	var buf bytes.Buffer
	var renderErr error
	canvas.View(func(p *packing.Packing) {
		renderErr = render.PNG(&buf, p, opts...)
	})
	if renderErr != nil {
		writeInternalError(w, renderErr)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleCanvasPDF(w http.ResponseWriter, r *http.Request) {
	canvas, ok := h.canvasFromPath(w, r)
	if !ok {
		return
	}

	title := "Canvas " + canvas.ID()[:8]
	var buf bytes.Buffer
	var renderErr error
	canvas.View(func(p *packing.Packing) {
		renderErr = render.PDF(&buf, p, title)
	})
	if renderErr != nil {
		writeInternalError(w, renderErr)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// canvasFromPath resolves the {id} path segment to a stored canvas, writing
// the error response itself when the canvas cannot be served.
func (h *Handler) canvasFromPath(w http.ResponseWriter, r *http.Request) (*storage.Canvas, bool) {
	id := r.PathValue("id")
	canvas, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Canvas not found", fmt.Sprintf("no canvas with id %q", id))
			return nil, false
		}
		writeInternalError(w, err)
		return nil, false
	}
	return canvas, true
}

func summarizeCanvas(c *storage.Canvas) canvasSummary {
	stats := c.Stats()
	return canvasSummary{
		ID:           c.ID(),
		CreatedAt:    c.CreatedAt(),
		Height:       c.Height(),
		Width:        c.Width(),
		ContactDepth: c.ContactDepth(),
		Placed:       stats.Placed,
		OccupiedArea: stats.OccupiedArea,
		FillRatio:    stats.FillRatio,
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type createCanvasRequest struct {
	Height       int `json:"height"`
	Width        int `json:"width"`
	ContactDepth int `json:"contactDepth"`
}

type placeRequest struct {
	ID     *int `json:"id"`
	Y      *int `json:"y"`
	X      *int `json:"x"`
	Height int  `json:"height"`
	Width  int  `json:"width"`
}

type fillRequest struct {
	BaseSize      int     `json:"baseSize"`
	HeightSigma   float64 `json:"heightSigma"`
	WidthSigma    float64 `json:"widthSigma"`
	MinSide       int     `json:"minSide"`
	Seed          int64   `json:"seed"`
	MaxPlacements int     `json:"maxPlacements"`
}

type canvasSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	Height       int       `json:"height"`
	Width        int       `json:"width"`
	ContactDepth int       `json:"contactDepth"`
	Placed       int       `json:"placed"`
	OccupiedArea int       `json:"occupiedArea"`
	FillRatio    float64   `json:"fillRatio"`
}

type canvasDetail struct {
	canvasSummary
	Rectangles []packing.Rect `json:"rectangles"`
}

type listCanvasesResponse struct {
	Canvases []canvasSummary `json:"canvases"`
	Count    int             `json:"count"`
}

type placeResponse struct {
	Placed    bool          `json:"placed"`
	Rectangle *packing.Rect `json:"rectangle,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	FillRatio float64       `json:"fillRatio"`
}

type fillResponse struct {
	Placed    int     `json:"placed"`
	Attempts  int     `json:"attempts"`
	ElapsedMs int64   `json:"elapsedMs"`
	FillRatio float64 `json:"fillRatio"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
