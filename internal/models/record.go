package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Platform identifies the service an image was generated on
type Platform string

const (
	PlatformTensor     Platform = "tensor"
	PlatformMidjourney Platform = "midjourney"
	PlatformGemini     Platform = "gemini"
	PlatformPiclumen   Platform = "piclumen"
	PlatformLeonardo   Platform = "leonardo"
)

// ErrUnknownPlatform is returned for platforms outside the known set
var ErrUnknownPlatform = errors.New("unknown platform")

// MaxLoras is the number of LoRA slots a tensor generation can carry
const MaxLoras = 6

// DefaultSeed is stored when no seed was entered
const DefaultSeed = "random"

// Platforms lists every known platform in display order
var Platforms = []Platform{
	PlatformGemini,
	PlatformTensor,
	PlatformMidjourney,
	PlatformPiclumen,
	PlatformLeonardo,
}

// HasParameters reports whether records of this platform carry tensor
// generation parameters. Unknown platforms are an error.
func (p Platform) HasParameters() (bool, error) {
	switch p {
	case PlatformTensor:
		return true, nil
	case PlatformMidjourney, PlatformGemini, PlatformPiclumen, PlatformLeonardo:
		return false, nil
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownPlatform, string(p))
	}
}

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if _, err := p.HasParameters(); err != nil {
		return "", err
	}
	return p, nil
}

// Lora is a LoRA model applied to a tensor generation
type Lora struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// TensorParameters holds the generation settings recorded for tensor images
type TensorParameters struct {
	VAE             string  `json:"vae"`
	Sampler         string  `json:"sampler"`
	Scheduler       string  `json:"scheduler"`
	GuidanceScale   float64 `json:"cfg"`
	Steps           int     `json:"steps"`
	Seed            string  `json:"seed"`
	UpscalerEnabled bool    `json:"upscaler"`
	DetailerEnabled bool    `json:"adetailer"`
	Loras           []Lora  `json:"lora"`
}

func (t *TensorParameters) normalize() {
	if strings.TrimSpace(t.Seed) == "" {
		t.Seed = DefaultSeed
	}
	var loras []Lora
	for _, l := range t.Loras {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		if len(loras) == MaxLoras {
			break
		}
		loras = append(loras, l)
	}
	t.Loras = loras
}

// Record is one catalogued image with its generation metadata
type Record struct {
	ID             string            `json:"id,omitempty"`
	OwnerID        string            `json:"userId"`
	MediaURL       string            `json:"imageUrl"`
	Platform       Platform          `json:"platform"`
	Model          string            `json:"model"`
	Prompt         string            `json:"prompt"`
	NegativePrompt string            `json:"negativePrompt"`
	Tags           string            `json:"tags"`
	Notes          string            `json:"notes"`
	Tensor         *TensorParameters `json:"tensorData,omitempty"`
	CreatedAt      time.Time         `json:"timestamp"`
}

// Normalize enforces the platform variant: tensor parameters are kept
// (and cleaned) only for tensor records.
func (r *Record) Normalize() error {
	has, err := r.Platform.HasParameters()
	if err != nil {
		return err
	}
	if !has {
		r.Tensor = nil
		return nil
	}
	if r.Tensor != nil {
		t := *r.Tensor
		t.normalize()
		r.Tensor = &t
	}
	return nil
}

// TagList splits the comma-separated tags, dropping blanks
func (r *Record) TagList() []string {
	var tags []string
	for _, tag := range strings.Split(r.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParametersText renders every generation parameter as plain text
func (r *Record) ParametersText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prompt: %s\n\n", r.Prompt)
	fmt.Fprintf(&b, "Negative Prompt: %s\n\n---\n", orNA(r.NegativePrompt))
	fmt.Fprintf(&b, "Platform: %s\nModel: %s\n", r.Platform, r.Model)

	if r.Platform == PlatformTensor && r.Tensor != nil {
		t := r.Tensor
		vae := t.VAE
		if vae == "" {
			vae = "Default"
		}
		fmt.Fprintf(&b, "VAE: %s\nSampler: %s\n", vae, t.Sampler)
		fmt.Fprintf(&b, "Scheduler: %s\nSteps: %d\n", t.Scheduler, t.Steps)
		fmt.Fprintf(&b, "CFG Scale: %s\nSeed: %s\n", strconv.FormatFloat(t.GuidanceScale, 'f', -1, 64), t.Seed)
		if len(t.Loras) > 0 {
			parts := make([]string, 0, len(t.Loras))
			for _, l := range t.Loras {
				parts = append(parts, fmt.Sprintf("%s: %s", l.Name, strconv.FormatFloat(l.Strength, 'f', -1, 64)))
			}
			fmt.Fprintf(&b, "LoRA: %s\n", strings.Join(parts, ", "))
		}
		if t.UpscalerEnabled {
			b.WriteString("Upscaler: Yes\n")
		}
		if t.DetailerEnabled {
			b.WriteString("ADetailer: Yes\n")
		}
	}

	fmt.Fprintf(&b, "---\nTags: %s\nNotes: %s\nImage URL: %s", orNA(r.Tags), orNA(r.Notes), r.MediaURL)
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Draft is the owner-supplied part of a record, before upload and insert
type Draft struct {
	Platform       Platform          `json:"platform"`
	Model          string            `json:"model"`
	Prompt         string            `json:"prompt"`
	NegativePrompt string            `json:"negativePrompt"`
	Tags           string            `json:"tags"`
	Notes          string            `json:"notes"`
	Tensor         *TensorParameters `json:"tensorData,omitempty"`
}

// Record attaches the owner and uploaded media URL to the draft
func (d Draft) Record(ownerID, mediaURL string) Record {
	return Record{
		OwnerID:        ownerID,
		MediaURL:       mediaURL,
		Platform:       d.Platform,
		Model:          d.Model,
		Prompt:         d.Prompt,
		NegativePrompt: d.NegativePrompt,
		Tags:           d.Tags,
		Notes:          d.Notes,
		Tensor:         d.Tensor,
	}
}
