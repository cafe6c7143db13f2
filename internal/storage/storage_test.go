package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/eugenenazirov/atlas-packer/internal/packing"
)

func TestCreateRegistersCanvas(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})

	canvas, err := store.Create(320, 240, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canvas.ID() == "" {
		t.Fatal("expected a non-empty canvas id")
	}
	if canvas.Height() != 320 || canvas.Width() != 240 {
		t.Fatalf("expected 320x240, got %dx%d", canvas.Height(), canvas.Width())
	}
	if canvas.ContactDepth() != packing.DefaultContactDepth {
		t.Fatalf("expected default contact depth, got %d", canvas.ContactDepth())
	}

	got, err := store.Get(canvas.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != canvas {
		t.Fatal("Get returned a different canvas")
	}
}

func TestCreateAppliesContactDepth(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(32, 32, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canvas.ContactDepth() != 5 {
		t.Fatalf("expected contact depth 5, got %d", canvas.ContactDepth())
	}
}

func TestCreateRejectsInvalidDimensions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	testCases := [][2]int{{0, 10}, {10, 0}, {-4, 10}, {10, -4}}

	for idx, tc := range testCases {
		tc := tc
		t.Run(fmt.Sprintf("case_%d", idx), func(t *testing.T) {
			if _, err := store.Create(tc[0], tc[1], 0); !errors.Is(err, packing.ErrInvalidDimension) {
				t.Fatalf("expected ErrInvalidDimension for %v, got %v", tc, err)
			}
		})
	}
}

func TestCreateRejectsOversizeCanvas(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{MaxArea: 10_000})

	if _, err := store.Create(100, 101, 0); !errors.Is(err, ErrCanvasTooLarge) {
		t.Fatalf("expected ErrCanvasTooLarge, got %v", err)
	}
	if _, err := store.Create(20_000, 1, 0); !errors.Is(err, ErrCanvasTooLarge) {
		t.Fatalf("expected ErrCanvasTooLarge for an oversize side, got %v", err)
	}
	if _, err := store.Create(100, 100, 0); err != nil {
		t.Fatalf("a canvas at exactly the limit must be allowed, got %v", err)
	}
}

func TestCreateRejectsWhenFull(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{MaxCanvases: 2})
	for i := 0; i < 2; i++ {
		if _, err := store.Create(16, 16, 0); err != nil {
			t.Fatalf("unexpected error on canvas %d: %v", i, err)
		}
	}

	if _, err := store.Create(16, 16, 0); !errors.Is(err, ErrTooManyCanvases) {
		t.Fatalf("expected ErrTooManyCanvases, got %v", err)
	}
}

func TestGetAndDeleteMissingCanvas(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})

	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}
	if err := store.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Delete, got %v", err)
	}
}

func TestDeleteRemovesCanvas(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(16, 16, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Delete(canvas.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get(canvas.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if got := len(store.List()); got != 0 {
		t.Fatalf("expected empty list, got %d canvases", got)
	}
}

func TestListOrdersByCreation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	ids := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		canvas, err := store.Create(16, 16, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids[canvas.ID()] = struct{}{}
	}

	list := store.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 canvases, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt().Before(list[i-1].CreatedAt()) {
			t.Fatal("list is not ordered by creation time")
		}
	}
	for _, canvas := range list {
		if _, ok := ids[canvas.ID()]; !ok {
			t.Fatalf("unexpected canvas %s in list", canvas.ID())
		}
	}
}

func TestCanvasPlacement(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(8, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rect, ok, err := canvas.TryPlace(10, 0, 0, 2, 2)
	if err != nil || !ok {
		t.Fatalf("expected placement, got ok=%v err=%v", ok, err)
	}
	if rect.ID != 10 || rect.Y != 0 || rect.X != 0 {
		t.Fatalf("unexpected rect %+v", rect)
	}

	if _, _, err := canvas.TryPlace(10, 4, 4, 2, 2); !errors.Is(err, packing.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	rect, ok, err = canvas.PlaceBest(11, 2, 2)
	if err != nil || !ok {
		t.Fatalf("expected placement, got ok=%v err=%v", ok, err)
	}
	if rect.ID != 11 {
		t.Fatalf("unexpected rect %+v", rect)
	}

	stats := canvas.Stats()
	if stats.Placed != 2 || stats.OccupiedArea != 8 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rects := canvas.Rects()
	if len(rects) != 2 || rects[0].ID != 10 || rects[1].ID != 11 {
		t.Fatalf("expected rects ordered by id, got %+v", rects)
	}
}

func TestPlaceNextAssignsFreeIDs(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(16, 16, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rect, ok, err := canvas.PlaceNext(2, 2)
	if err != nil || !ok || rect.ID != 1 {
		t.Fatalf("expected id 1, got rect=%+v ok=%v err=%v", rect, ok, err)
	}

	// An explicit placement claims id 2, so the next auto id skips to 3.
	if _, ok, err := canvas.TryPlace(2, 10, 10, 2, 2); err != nil || !ok {
		t.Fatalf("expected placement, got ok=%v err=%v", ok, err)
	}
	rect, ok, err = canvas.PlaceNext(2, 2)
	if err != nil || !ok || rect.ID != 3 {
		t.Fatalf("expected id 3, got rect=%+v ok=%v err=%v", rect, ok, err)
	}
}

func TestPlaceNextDoesNotBurnIDsOnRejection(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(4, 4, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rect, ok, err := canvas.PlaceNext(2, 2); err != nil || !ok || rect.ID != 1 {
		t.Fatalf("expected id 1, got rect=%+v ok=%v err=%v", rect, ok, err)
	}
	if _, ok, err := canvas.PlaceNext(5, 5); err != nil || ok {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
	if rect, ok, err := canvas.PlaceNext(2, 2); err != nil || !ok || rect.ID != 2 {
		t.Fatalf("expected id 2 after a rejection, got rect=%+v ok=%v err=%v", rect, ok, err)
	}
}

func TestFillPacksUntilRejection(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(8, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := func() (int, int) { return 2, 2 }
	res, err := canvas.Fill(next, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Placed != 16 {
		t.Fatalf("expected 16 placements on an 8x8 canvas, got %d", res.Placed)
	}
	if res.Attempts != 17 {
		t.Fatalf("expected the run to end on the 17th attempt, got %d", res.Attempts)
	}
	if res.FillRatio != 1.0 {
		t.Fatalf("expected a full canvas, got ratio %v", res.FillRatio)
	}
}

func TestFillHonorsCap(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(32, 32, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := canvas.Fill(func() (int, int) { return 3, 3 }, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Placed != 4 || res.Attempts != 4 {
		t.Fatalf("expected exactly 4 placements, got %+v", res)
	}
	if stats := canvas.Stats(); stats.Placed != 4 {
		t.Fatalf("expected 4 rects on the canvas, got %d", stats.Placed)
	}
}

func TestFillPropagatesSizeErrors(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(8, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := canvas.Fill(func() (int, int) { return 0, 3 }, 0); !errors.Is(err, packing.ErrInvalidDimension) {
		t.Fatalf("expected ErrInvalidDimension, got %v", err)
	}
}

func TestViewExposesEngineState(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(8, 8, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := canvas.TryPlace(1, 0, 0, 2, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var placed int
	canvas.View(func(p *packing.Packing) { placed = p.Len() })
	if placed != 1 {
		t.Fatalf("expected 1 placed rect, got %d", placed)
	}
}

func TestCanvasConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(Limits{})
	canvas, err := store.Create(32, 32, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			if _, _, err := canvas.PlaceNext(2, 2); err != nil {
				t.Errorf("PlaceNext failed: %v", err)
			}
		}()

		go func() {
			defer wg.Done()
			canvas.Stats()
			canvas.Rects()
		}()
	}
	wg.Wait()

	stats := canvas.Stats()
	if stats.Placed != 16 {
		t.Fatalf("expected 16 placements, got %d", stats.Placed)
	}

	seen := make(map[int]struct{})
	for _, r := range canvas.Rects() {
		if _, dup := seen[r.ID]; dup {
			t.Fatalf("duplicate id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
}
