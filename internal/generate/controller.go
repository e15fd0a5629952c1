// Package generate drives the generation lifecycle: it validates input,
// permits exactly one in-flight provider request at a time, and maps
// provider results onto the session state (current prompt, aspect ratio,
// selection, last error).
package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nafisa/promptpix/internal/history"
	"github.com/nafisa/promptpix/internal/provider"
	"github.com/nafisa/promptpix/pkg/models"
)

var ErrNotInHistory = errors.New("image not found in history")

type Controller struct {
	provider provider.Provider
	history  *history.Store

	// pick chooses a sample-prompt index; replaced in tests.
	pick func(n int) int

	mu          sync.Mutex
	prompt      string
	aspectRatio models.AspectRatio
	selectedID  string
	generating  bool
	lastError   string
}

func NewController(p provider.Provider, h *history.Store) *Controller {
	return &Controller{
		provider:    p,
		history:     h,
		aspectRatio: models.DefaultAspectRatio(),
		pick:        rand.Intn,
	}
}

// Submit runs one generation attempt. A blank prompt and a submit while
// another attempt is in flight are both rejected up front without touching
// session state. On success the new image is inserted into history and
// becomes the current selection. On failure the last error is recorded and
// the previous selection is left alone. isGenerating is false again on
// every return path.
func (c *Controller) Submit(ctx context.Context, prompt string, ratio models.AspectRatio) (*models.GeneratedImage, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return nil, models.ErrEmptyPrompt
	}
	if !ratio.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAspectRatio, ratio)
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return nil, models.ErrRequestInFlight
	}
	c.generating = true
	c.prompt = trimmed
	c.aspectRatio = ratio
	c.lastError = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.generating = false
		c.mu.Unlock()
	}()

	resp, err := c.provider.Generate(ctx, &models.Request{Prompt: trimmed, AspectRatio: ratio})
	if err != nil {
		return nil, c.fail(err)
	}

	part, ok := firstImagePart(resp)
	if !ok {
		return nil, c.fail(models.ErrNoImageProduced)
	}

	mimeType := part.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	img := &models.GeneratedImage{
		ID:          uuid.New().String(),
		ImageData:   part.Data,
		MIMEType:    mimeType,
		Prompt:      trimmed,
		AspectRatio: ratio,
		CreatedAt:   time.Now(),
	}

	if err := c.history.Insert(img); err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	c.selectedID = img.ID
	c.mu.Unlock()

	return img, nil
}

// Reselect restores prompt, aspect ratio, and selection from a history
// entry. It never touches the network.
func (c *Controller) Reselect(id string) (*models.GeneratedImage, error) {
	img, ok := c.history.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInHistory, id)
	}

	c.mu.Lock()
	c.prompt = img.Prompt
	c.aspectRatio = img.AspectRatio
	c.selectedID = img.ID
	c.mu.Unlock()

	return img, nil
}

// Remove deletes a history entry and clears the selection if it pointed at
// the removed id.
func (c *Controller) Remove(id string) error {
	if err := c.history.Remove(id); err != nil {
		return err
	}

	c.mu.Lock()
	if c.selectedID == id {
		c.selectedID = ""
	}
	c.mu.Unlock()

	return nil
}

// RandomSamplePrompt returns one entry from the curated prompt list,
// chosen uniformly at random. It does not submit anything.
func (c *Controller) RandomSamplePrompt() string {
	return samplePrompts[c.pick(len(samplePrompts))]
}

func (c *Controller) SetPrompt(prompt string) {
	c.mu.Lock()
	c.prompt = prompt
	c.mu.Unlock()
}

func (c *Controller) SetAspectRatio(ratio models.AspectRatio) error {
	if !ratio.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidAspectRatio, ratio)
	}

	c.mu.Lock()
	c.aspectRatio = ratio
	c.mu.Unlock()
	return nil
}

func (c *Controller) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

func (c *Controller) AspectRatio() models.AspectRatio {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspectRatio
}

// Selection resolves the current selection against history. It returns nil
// when nothing is selected or the backing entry has been deleted.
func (c *Controller) Selection() *models.GeneratedImage {
	c.mu.Lock()
	id := c.selectedID
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	img, ok := c.history.Get(id)
	if !ok {
		return nil
	}
	return img
}

func (c *Controller) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// LastError is the message recorded by the most recent failed attempt, or
// empty after a success or before any attempt.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
	return err
}

// firstImagePart returns the first response part carrying inline image
// data, scanning in provider order.
func firstImagePart(resp *models.Response) (models.Part, bool) {
	for _, part := range resp.Parts {
		if part.HasImage() {
			return part, true
		}
	}
	return models.Part{}, false
}
