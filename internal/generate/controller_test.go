package generate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nafisa/promptpix/internal/history"
	"github.com/nafisa/promptpix/internal/storage"
	"github.com/nafisa/promptpix/pkg/models"
)

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	calls        atomic.Int64
	generateFunc func(ctx context.Context, req *models.Request) (*models.Response, error)
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Generate(ctx context.Context, req *models.Request) (*models.Response, error) {
	m.calls.Add(1)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &models.Response{
		Parts: []models.Part{
			{Data: []byte("AAAA"), MIMEType: "image/png"},
		},
	}, nil
}

func newTestController(p *mockProvider) (*Controller, *history.Store) {
	h := history.NewStore(storage.NewMemory())
	return NewController(p, h), h
}

func TestController_Submit_Success(t *testing.T) {
	prov := &mockProvider{}
	c, h := newTestController(prov)

	img, err := c.Submit(context.Background(), "a red apple", models.AspectSquare)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if img.Prompt != "a red apple" {
		t.Errorf("Prompt = %q, want %q", img.Prompt, "a red apple")
	}
	if img.AspectRatio != models.AspectSquare {
		t.Errorf("AspectRatio = %v, want %v", img.AspectRatio, models.AspectSquare)
	}
	if string(img.ImageData) != "AAAA" {
		t.Errorf("ImageData = %q, want %q", img.ImageData, "AAAA")
	}
	if img.ID == "" {
		t.Error("ID is empty")
	}
	if img.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}

	if got := prov.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}
	if c.IsGenerating() {
		t.Error("IsGenerating() = true after Submit returned")
	}
	if c.LastError() != "" {
		t.Errorf("LastError() = %q, want empty", c.LastError())
	}

	if h.Len() != 1 {
		t.Errorf("history length = %d, want 1", h.Len())
	}
	if h.All()[0].ID != img.ID {
		t.Error("new image is not at history index 0")
	}

	sel := c.Selection()
	if sel == nil || sel.ID != img.ID {
		t.Errorf("Selection() = %v, want the new image", sel)
	}
}

func TestController_Submit_TrimsPrompt(t *testing.T) {
	var gotPrompt string
	prov := &mockProvider{
		generateFunc: func(_ context.Context, req *models.Request) (*models.Response, error) {
			gotPrompt = req.Prompt
			return &models.Response{Parts: []models.Part{{Data: []byte("x")}}}, nil
		},
	}
	c, _ := newTestController(prov)

	img, err := c.Submit(context.Background(), "  a red apple\n", models.AspectSquare)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if gotPrompt != "a red apple" {
		t.Errorf("provider received prompt %q, want trimmed", gotPrompt)
	}
	if img.Prompt != "a red apple" {
		t.Errorf("stored prompt = %q, want trimmed", img.Prompt)
	}
}

func TestController_Submit_EmptyPrompt(t *testing.T) {
	prov := &mockProvider{}
	c, h := newTestController(prov)

	for _, prompt := range []string{"", "   ", "\t\n"} {
		_, err := c.Submit(context.Background(), prompt, models.AspectSquare)
		if !errors.Is(err, models.ErrEmptyPrompt) {
			t.Errorf("Submit(%q) error = %v, want ErrEmptyPrompt", prompt, err)
		}
	}

	if got := prov.calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
	if h.Len() != 0 {
		t.Errorf("history length = %d, want 0", h.Len())
	}
	// Rejected before the attempt starts, so no error is recorded.
	if c.LastError() != "" {
		t.Errorf("LastError() = %q, want empty", c.LastError())
	}
}

func TestController_Submit_InvalidAspectRatio(t *testing.T) {
	prov := &mockProvider{}
	c, _ := newTestController(prov)

	_, err := c.Submit(context.Background(), "x", models.AspectRatio("2:1"))
	if !errors.Is(err, models.ErrInvalidAspectRatio) {
		t.Errorf("Submit() error = %v, want ErrInvalidAspectRatio", err)
	}
	if got := prov.calls.Load(); got != 0 {
		t.Errorf("provider calls = %d, want 0", got)
	}
}

func TestController_Submit_RejectsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			close(started)
			<-release
			return &models.Response{Parts: []models.Part{{Data: []byte("x")}}}, nil
		},
	}
	c, _ := newTestController(prov)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "first", models.AspectSquare)
		done <- err
	}()

	<-started
	if !c.IsGenerating() {
		t.Error("IsGenerating() = false while request is in flight")
	}

	_, err := c.Submit(context.Background(), "second", models.AspectSquare)
	if !errors.Is(err, models.ErrRequestInFlight) {
		t.Errorf("second Submit() error = %v, want ErrRequestInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	if got := prov.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1 (second submit must not reach the provider)", got)
	}
	// The guard resets after the first attempt resolves.
	if c.IsGenerating() {
		t.Error("IsGenerating() = true after first attempt resolved")
	}
	if c.Prompt() != "first" {
		t.Errorf("Prompt() = %q, want %q (rejected submit must not change state)", c.Prompt(), "first")
	}
}

func TestController_Submit_ProviderError(t *testing.T) {
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			return nil, errors.New("connection refused")
		},
	}
	c, h := newTestController(prov)

	// Seed a previous success so we can verify the selection survives.
	prov.generateFunc = nil
	first, err := c.Submit(context.Background(), "seed", models.AspectSquare)
	if err != nil {
		t.Fatalf("seed Submit() error = %v", err)
	}
	prov.generateFunc = func(_ context.Context, _ *models.Request) (*models.Response, error) {
		return nil, errors.New("connection refused")
	}

	_, err = c.Submit(context.Background(), "x", models.AspectSquare)
	if err == nil {
		t.Fatal("Submit() error = nil, want provider error")
	}

	if !strings.Contains(c.LastError(), "connection refused") {
		t.Errorf("LastError() = %q, want the provider message", c.LastError())
	}
	if h.Len() != 1 {
		t.Errorf("history length = %d, want 1 (failure must not mutate history)", h.Len())
	}
	sel := c.Selection()
	if sel == nil || sel.ID != first.ID {
		t.Error("failed attempt overwrote the previous selection")
	}
	if c.IsGenerating() {
		t.Error("IsGenerating() = true after failure")
	}
}

func TestController_Submit_NoImageProduced(t *testing.T) {
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			return &models.Response{Parts: []models.Part{{Text: "words only"}}}, nil
		},
	}
	c, h := newTestController(prov)

	_, err := c.Submit(context.Background(), "x", models.AspectSquare)
	if !errors.Is(err, models.ErrNoImageProduced) {
		t.Fatalf("Submit() error = %v, want ErrNoImageProduced", err)
	}

	if c.LastError() == "" {
		t.Error("LastError() empty, want NoImageProduced message")
	}
	if h.Len() != 0 {
		t.Errorf("history length = %d, want 0", h.Len())
	}
	if c.Selection() != nil {
		t.Error("Selection() changed on failed attempt")
	}
}

func TestController_Submit_UsesFirstImagePart(t *testing.T) {
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			return &models.Response{Parts: []models.Part{
				{Text: "intro"},
				{Data: []byte("first"), MIMEType: "image/png"},
				{Data: []byte("second"), MIMEType: "image/jpeg"},
			}}, nil
		},
	}
	c, _ := newTestController(prov)

	img, err := c.Submit(context.Background(), "x", models.AspectSquare)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if string(img.ImageData) != "first" {
		t.Errorf("ImageData = %q, want the first image part", img.ImageData)
	}
}

func TestController_Submit_ClearsLastErrorOnNewAttempt(t *testing.T) {
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			return nil, errors.New("boom")
		},
	}
	c, _ := newTestController(prov)

	if _, err := c.Submit(context.Background(), "x", models.AspectSquare); err == nil {
		t.Fatal("Submit() error = nil, want error")
	}
	if c.LastError() == "" {
		t.Fatal("LastError() empty after failure")
	}

	prov.generateFunc = nil
	if _, err := c.Submit(context.Background(), "y", models.AspectSquare); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.LastError() != "" {
		t.Errorf("LastError() = %q, want cleared", c.LastError())
	}
}

func TestController_Reselect(t *testing.T) {
	prov := &mockProvider{}
	c, _ := newTestController(prov)

	first, err := c.Submit(context.Background(), "first prompt", models.AspectLandscape)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := c.Submit(context.Background(), "second prompt", models.AspectSquare); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	callsBefore := prov.calls.Load()

	got, err := c.Reselect(first.ID)
	if err != nil {
		t.Fatalf("Reselect() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("Reselect() = %v, want %v", got.ID, first.ID)
	}

	if c.Prompt() != "first prompt" {
		t.Errorf("Prompt() = %q, want %q", c.Prompt(), "first prompt")
	}
	if c.AspectRatio() != models.AspectLandscape {
		t.Errorf("AspectRatio() = %v, want %v", c.AspectRatio(), models.AspectLandscape)
	}
	sel := c.Selection()
	if sel == nil || sel.ID != first.ID {
		t.Error("Selection() not updated by Reselect")
	}
	if prov.calls.Load() != callsBefore {
		t.Error("Reselect() made a network call")
	}
}

func TestController_Reselect_UnknownID(t *testing.T) {
	c, _ := newTestController(&mockProvider{})

	_, err := c.Reselect("no-such-id")
	if !errors.Is(err, ErrNotInHistory) {
		t.Errorf("Reselect() error = %v, want ErrNotInHistory", err)
	}
}

func TestController_Remove_ClearsMatchingSelection(t *testing.T) {
	c, h := newTestController(&mockProvider{})

	img, err := c.Submit(context.Background(), "x", models.AspectSquare)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := c.Remove(img.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if c.Selection() != nil {
		t.Error("Selection() should be cleared when its entry is removed")
	}
	if h.Len() != 0 {
		t.Errorf("history length = %d, want 0", h.Len())
	}
}

func TestController_Remove_KeepsOtherSelection(t *testing.T) {
	c, _ := newTestController(&mockProvider{})

	first, _ := c.Submit(context.Background(), "one", models.AspectSquare)
	second, _ := c.Submit(context.Background(), "two", models.AspectSquare)

	if err := c.Remove(first.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	sel := c.Selection()
	if sel == nil || sel.ID != second.ID {
		t.Error("removing a non-selected entry must not clear the selection")
	}
}

func TestController_RandomSamplePrompt(t *testing.T) {
	c, _ := newTestController(&mockProvider{})

	valid := make(map[string]bool, len(samplePrompts))
	for _, p := range samplePrompts {
		valid[p] = true
	}

	for i := 0; i < 20; i++ {
		got := c.RandomSamplePrompt()
		if !valid[got] {
			t.Fatalf("RandomSamplePrompt() = %q, not in the curated list", got)
		}
	}

	// Every index must be reachable through the picker.
	for i := range samplePrompts {
		c.pick = func(int) int { return i }
		if got := c.RandomSamplePrompt(); got != samplePrompts[i] {
			t.Errorf("RandomSamplePrompt() with pick=%d = %q, want %q", i, got, samplePrompts[i])
		}
	}
}

func TestController_SetAspectRatio(t *testing.T) {
	c, _ := newTestController(&mockProvider{})

	if c.AspectRatio() != models.AspectSquare {
		t.Errorf("default AspectRatio() = %v, want %v", c.AspectRatio(), models.AspectSquare)
	}

	if err := c.SetAspectRatio(models.AspectPortrait); err != nil {
		t.Fatalf("SetAspectRatio() error = %v", err)
	}
	if c.AspectRatio() != models.AspectPortrait {
		t.Errorf("AspectRatio() = %v, want %v", c.AspectRatio(), models.AspectPortrait)
	}

	if err := c.SetAspectRatio(models.AspectRatio("3:2")); err == nil {
		t.Error("SetAspectRatio() error = nil for invalid ratio")
	}
}

func TestController_DefaultMIMEType(t *testing.T) {
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			return &models.Response{Parts: []models.Part{{Data: []byte("x")}}}, nil
		},
	}
	c, _ := newTestController(prov)

	img, err := c.Submit(context.Background(), "x", models.AspectSquare)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("MIMEType = %q, want image/png fallback", img.MIMEType)
	}
}

func TestController_StaleResultStillResolvesState(t *testing.T) {
	// A slow response that lands after the caller moved on must still
	// reset the guard and record the outcome.
	prov := &mockProvider{
		generateFunc: func(_ context.Context, _ *models.Request) (*models.Response, error) {
			time.Sleep(10 * time.Millisecond)
			return &models.Response{Parts: []models.Part{{Data: []byte("late")}}}, nil
		},
	}
	c, h := newTestController(prov)

	if _, err := c.Submit(context.Background(), "slow", models.AspectSquare); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if c.IsGenerating() {
		t.Error("IsGenerating() = true after resolution")
	}
	if h.Len() != 1 {
		t.Errorf("history length = %d, want 1", h.Len())
	}
}
