package models

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrEmptyPrompt        = errors.New("prompt cannot be empty")
	ErrRequestInFlight    = errors.New("a generation request is already in flight")
	ErrNoImageProduced    = errors.New("the model returned no image; try rephrasing the prompt")
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
)

type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectClassic   AspectRatio = "4:3"
)

func ValidAspectRatios() []AspectRatio {
	return []AspectRatio{AspectSquare, AspectLandscape, AspectPortrait, AspectClassic}
}

func (a AspectRatio) IsValid() bool {
	return slices.Contains(ValidAspectRatios(), a)
}

func (a AspectRatio) String() string {
	return string(a)
}

// Label returns the human-readable name shown in menus and listings.
func (a AspectRatio) Label() string {
	switch a {
	case AspectSquare:
		return "square"
	case AspectLandscape:
		return "landscape"
	case AspectPortrait:
		return "portrait"
	case AspectClassic:
		return "classic"
	default:
		return string(a)
	}
}

func DefaultAspectRatio() AspectRatio {
	return AspectSquare
}

// Request is what the controller hands to a provider: the trimmed prompt
// and the aspect ratio selected for this attempt.
type Request struct {
	Prompt      string
	AspectRatio AspectRatio
}

func NewRequest(prompt string) *Request {
	return &Request{
		Prompt:      prompt,
		AspectRatio: DefaultAspectRatio(),
	}
}

// Response is an ordered list of content parts as returned by the provider.
// A part may carry text, inline image bytes, or both; callers scan the
// parts in order and use the first one with image data.
type Response struct {
	Parts []Part
}

type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// HasImage reports whether the part carries inline image data.
func (p Part) HasImage() bool {
	return len(p.Data) > 0
}

// GeneratedImage is one successful generation. It is immutable once
// created; the JSON tags define the persisted history record format.
type GeneratedImage struct {
	ID          string      `json:"id"`
	ImageData   []byte      `json:"image_data"`
	MIMEType    string      `json:"mime_type"`
	Prompt      string      `json:"prompt"`
	AspectRatio AspectRatio `json:"aspect_ratio"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Ext returns the file extension for the image's MIME type, without the
// leading dot. Unknown types fall back to png.
func (g *GeneratedImage) Ext() string {
	switch g.MIMEType {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
