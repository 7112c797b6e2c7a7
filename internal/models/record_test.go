package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformHasParameters(t *testing.T) {
	tests := []struct {
		platform Platform
		want     bool
		wantErr  bool
	}{
		{PlatformTensor, true, false},
		{PlatformMidjourney, false, false},
		{PlatformGemini, false, false},
		{PlatformPiclumen, false, false},
		{PlatformLeonardo, false, false},
		{Platform("dalle"), false, true},
		{Platform(""), false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			got, err := tt.platform.HasParameters()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Tensor ")
	require.NoError(t, err)
	assert.Equal(t, PlatformTensor, p)

	_, err = ParsePlatform("stable-diffusion")
	assert.Error(t, err)
}

func TestNormalizeDropsParametersForOtherPlatforms(t *testing.T) {
	r := Record{Platform: PlatformGemini, Tensor: &TensorParameters{Steps: 30}}
	require.NoError(t, r.Normalize())
	assert.Nil(t, r.Tensor)
}

func TestNormalizeCleansTensorParameters(t *testing.T) {
	loras := []Lora{
		{Name: "a", Strength: 0.8},
		{Name: "", Strength: 0.8},
		{Name: "b", Strength: 0.5},
		{Name: "c"}, {Name: "d"}, {Name: "e"}, {Name: "f"}, {Name: "g"},
	}
	original := &TensorParameters{Loras: loras}
	r := Record{Platform: PlatformTensor, Tensor: original}
	require.NoError(t, r.Normalize())

	require.NotNil(t, r.Tensor)
	assert.Equal(t, DefaultSeed, r.Tensor.Seed)
	require.Len(t, r.Tensor.Loras, MaxLoras)
	assert.Equal(t, "a", r.Tensor.Loras[0].Name)
	assert.Equal(t, "b", r.Tensor.Loras[1].Name)
	assert.Equal(t, "f", r.Tensor.Loras[5].Name)
	assert.Len(t, original.Loras, 8, "caller's parameters must not be modified")
}

func TestNormalizeRejectsUnknownPlatform(t *testing.T) {
	r := Record{Platform: "unknown"}
	assert.Error(t, r.Normalize())
}

func TestTagList(t *testing.T) {
	r := Record{Tags: " cute, feline ,, ,night"}
	assert.Equal(t, []string{"cute", "feline", "night"}, r.TagList())
	assert.Empty(t, (&Record{}).TagList())
}

func TestParametersText(t *testing.T) {
	r := Record{
		MediaURL: "https://img.example/1.png",
		Platform: PlatformTensor,
		Model:    "SDXL",
		Prompt:   "a cat",
		Tags:     "cute",
		Tensor: &TensorParameters{
			Sampler:         "dpmpp_2m",
			Scheduler:       "karras",
			GuidanceScale:   3.5,
			Steps:           30,
			Seed:            "42",
			DetailerEnabled: true,
			Loras:           []Lora{{Name: "detail", Strength: 0.8}},
		},
	}
	text := r.ParametersText()
	assert.Contains(t, text, "Prompt: a cat\n")
	assert.Contains(t, text, "Negative Prompt: N/A")
	assert.Contains(t, text, "VAE: Default\n")
	assert.Contains(t, text, "CFG Scale: 3.5\n")
	assert.Contains(t, text, "LoRA: detail: 0.8\n")
	assert.Contains(t, text, "ADetailer: Yes\n")
	assert.NotContains(t, text, "Upscaler")
	assert.Contains(t, text, "Notes: N/A\nImage URL: https://img.example/1.png")
}

func TestDraftRecord(t *testing.T) {
	d := Draft{Platform: PlatformLeonardo, Model: "Phoenix 1.0", Prompt: "castle"}
	r := d.Record("owner-1", "https://img.example/c.png")
	assert.Equal(t, "owner-1", r.OwnerID)
	assert.Equal(t, "https://img.example/c.png", r.MediaURL)
	assert.Equal(t, "castle", r.Prompt)
	assert.Empty(t, r.ID)
	assert.True(t, r.CreatedAt.IsZero())
}

func TestCollectionRowConversion(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := Record{
		ID:        "id-1",
		OwnerID:   "owner-1",
		MediaURL:  "https://img.example/1.png",
		Platform:  PlatformTensor,
		Prompt:    "a dog",
		Tensor:    &TensorParameters{Steps: 20, Seed: "7", Loras: []Lora{{Name: "x", Strength: 1}}},
		CreatedAt: created,
	}
	row, err := NewCollectionRow(r)
	require.NoError(t, err)
	assert.Equal(t, "tensor", row.Platform)

	back, err := row.Record()
	require.NoError(t, err)
	assert.Equal(t, r, back)

	plain := Record{ID: "id-2", Platform: PlatformGemini}
	row, err = NewCollectionRow(plain)
	require.NoError(t, err)
	assert.Nil(t, row.TensorData)
	back, err = row.Record()
	require.NoError(t, err)
	assert.Nil(t, back.Tensor)
}
