package provider

import (
	"context"
	"errors"

	"github.com/nafisa/promptpix/pkg/models"
)

var (
	ErrAPIKeyRequired   = errors.New("API key is required")
	ErrGenerationFailed = errors.New("image generation failed")
)

// Provider is the remote image-generation collaborator. Generate issues
// exactly one network round-trip and returns the provider's content parts
// in order; it never inspects them beyond decoding.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *models.Request) (*models.Response, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	TimeoutSec int
	Verbose    bool
}
