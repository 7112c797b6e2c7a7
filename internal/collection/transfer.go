package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-collection/server/internal/models"
)

const exportPrefix = "ai-collection-export-"

// ExportFile is a downloadable snapshot of the collection
type ExportFile struct {
	Name string
	Data []byte
}

// ExportFileName returns the download name for a snapshot taken at now
func ExportFileName(now time.Time) string {
	return exportPrefix + now.Format("2006-01-02") + ".json"
}

func encodeExport(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Confirmer asks the owner whether count records should be imported
type Confirmer interface {
	Confirm(ctx context.Context, count int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, count int) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, count int) (bool, error) {
	return f(ctx, count)
}

// AlwaysConfirm accepts every import
var AlwaysConfirm = ConfirmFunc(func(context.Context, int) (bool, error) { return true, nil })

// ImportStatus is the outcome of an import that did not fail
type ImportStatus string

const (
	ImportImported   ImportStatus = "imported"
	ImportNoNewItems ImportStatus = "no_new_items"
	ImportDeclined   ImportStatus = "declined"
)

// ImportResult reports what an import did; Count is the number of new records
type ImportResult struct {
	Status ImportStatus `json:"status"`
	Count  int          `json:"count"`
}

// candidate is an imported record. It has no id, timestamp or owner
// fields so those are never read from the file.
type candidate struct {
	MediaURL       string                   `json:"imageUrl"`
	Platform       models.Platform          `json:"platform"`
	Model          string                   `json:"model"`
	Prompt         string                   `json:"prompt"`
	NegativePrompt string                   `json:"negativePrompt"`
	Tags           string                   `json:"tags"`
	Notes          string                   `json:"notes"`
	Tensor         *models.TensorParameters `json:"tensorData,omitempty"`
}

func (c candidate) record(ownerID string) models.Record {
	return models.Record{
		OwnerID:        ownerID,
		MediaURL:       c.MediaURL,
		Platform:       c.Platform,
		Model:          c.Model,
		Prompt:         c.Prompt,
		NegativePrompt: c.NegativePrompt,
		Tags:           c.Tags,
		Notes:          c.Notes,
		Tensor:         c.Tensor,
	}
}

// parseImport validates the file layout and decodes every element
func parseImport(data []byte) ([]candidate, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newFailure(ImportValidationFailure, "Import failed: invalid format, expected a JSON array.", err)
	}
	// null decodes into a nil slice without error
	if raw == nil {
		return nil, newFailure(ImportValidationFailure, "Import failed: invalid format, expected a JSON array.",
			errors.New("null document"))
	}

	candidates := make([]candidate, 0, len(raw))
	for i, item := range raw {
		var c candidate
		if err := json.Unmarshal(item, &c); err != nil {
			return nil, newFailure(ImportValidationFailure, "Import failed: invalid format, expected a JSON array.",
				fmt.Errorf("element %d: %w", i, err))
		}
		candidates = append(candidates, c)
	}

	if len(candidates) > 0 {
		first := candidates[0]
		if strings.TrimSpace(first.Prompt) == "" || strings.TrimSpace(first.MediaURL) == "" {
			return nil, newFailure(ImportValidationFailure,
				"Import failed: invalid data, records need a prompt and an imageUrl.", nil)
		}
	}
	return candidates, nil
}

// dedupe drops candidates whose media URL is already known, including
// repeats within the file itself
func dedupe(candidates []candidate, existing []models.Record) []candidate {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, r := range existing {
		seen[r.MediaURL] = struct{}{}
	}
	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.MediaURL]; ok {
			continue
		}
		seen[c.MediaURL] = struct{}{}
		out = append(out, c)
	}
	return out
}
