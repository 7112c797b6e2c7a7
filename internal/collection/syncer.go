package collection

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/interfaces"
	"ai-collection/server/internal/models"
)

const (
	msgLoaded        = "Collections loaded successfully."
	msgDegraded      = "Connection failed. Displaying locally cached data."
	msgSaved         = "Collection saved successfully!"
	msgSaveFailed    = "Failed to save collection data."
	msgUploadPreset  = "Image upload failed. Check the upload preset in Cloudinary for transformation errors."
	msgDeleted       = "Item deleted successfully."
	msgDeleteFailed  = "Failed to delete item."
	msgCleared       = "All your collections have been deleted."
	msgClearFailed   = "Failed to clear all collections."
	msgNothingExport = "No collections to export."
	msgNoNewItems    = "No new items to import."
	msgImportDecline = "Import cancelled."
	msgImportFailed  = "Failed to import collections."
	msgPromptReady   = "Prompt idea generated!"
	msgAnalyzed      = "Image analyzed."
)

// Deps are the collaborators a Syncer calls out to
type Deps struct {
	Gateway   interfaces.CollectionGateway
	Cache     interfaces.LocalCache
	Uploader  interfaces.MediaUploader
	Assistant interfaces.PromptAssistant
}

// LoadResult is the outcome of a load. Degraded is set when the records
// came from the local cache because the gateway could not be reached.
type LoadResult struct {
	Records  []models.Record `json:"records"`
	Degraded bool            `json:"degraded"`
	Notice   string          `json:"notice,omitempty"`
}

// Syncer keeps one owner's in-memory collection consistent with the
// remote gateway and mirrors it into the local cache. Every operation is
// serialized on mu.
type Syncer struct {
	deps  Deps
	state *AppState

	mu       sync.Mutex
	owner    string
	loaded   bool
	degraded bool
	records  []models.Record
	filtered []models.Record
	criteria Criteria
}

// NewSyncer creates a syncer; a nil state gets a fresh AppState
func NewSyncer(deps Deps, state *AppState) *Syncer {
	if state == nil {
		state = NewAppState()
	}
	return &Syncer{
		deps:     deps,
		state:    state,
		records:  []models.Record{},
		filtered: []models.Record{},
	}
}

// State returns the presentation state shared with this syncer
func (s *Syncer) State() *AppState {
	return s.state
}

func (s *Syncer) begin() func() {
	s.state.Busy.Store(true)
	return func() { s.state.Busy.Store(false) }
}

// Load fetches the owner's records, falling back to the local cache when
// the gateway fails. It never returns an error.
func (s *Syncer) Load(ctx context.Context, owner string) LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.begin()()

	return s.load(ctx, owner)
}

func (s *Syncer) load(ctx context.Context, owner string) LoadResult {
	var err error
	defer observe("load", &err)()

	s.owner = owner
	s.loaded = true

	var records []models.Record
	records, err = s.deps.Gateway.List(ctx, owner)
	if err != nil {
		fetchErr := newFailure(FetchFailure, msgDegraded, err)
		log.WithError(fetchErr).WithField("owner", owner).Warn("Gateway list failed, loading from local cache")
		degradedLoads.Inc()

		cached := s.deps.Cache.Load(ctx)
		s.replace(cached)
		s.degraded = true
		s.state.Notify(NoticeWarning, msgDegraded)
		return LoadResult{Records: s.snapshot(s.filtered), Degraded: true, Notice: msgDegraded}
	}

	s.replace(records)
	s.degraded = false
	s.persist(ctx)
	log.WithFields(log.Fields{"owner": owner, "count": len(records)}).Debug("Collections loaded")
	s.state.Notify(NoticeInfo, msgLoaded)
	return LoadResult{Records: s.snapshot(s.filtered), Notice: msgLoaded}
}

// Add uploads media, inserts the record and prepends it to the collection
func (s *Syncer) Add(ctx context.Context, owner string, draft models.Draft, media []byte) (rec models.Record, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.begin()()
	defer observe("add", &err)()
	defer s.report(&err)

	candidate := draft.Record(owner, "")
	if err := candidate.Normalize(); err != nil {
		return models.Record{}, newFailure(SaveFailure, fmt.Sprintf("Failed to save collection data: %v", err), err)
	}

	url, err := s.deps.Uploader.Upload(ctx, media)
	if err != nil {
		msg := fmt.Sprintf("Failed to upload image: %v", err)
		if strings.Contains(err.Error(), "Invalid extension") {
			msg = msgUploadPreset
		}
		return models.Record{}, newFailure(UploadFailure, msg, err)
	}
	candidate.MediaURL = url

	saved, err := s.deps.Gateway.Insert(ctx, candidate)
	if err != nil {
		log.WithField("media_url", url).Warn("Record insert failed after upload, media left orphaned")
		return models.Record{}, newFailure(SaveFailure, msgSaveFailed, err)
	}

	s.records = append([]models.Record{saved}, s.records...)
	s.filtered = s.criteria.Apply(s.records)
	s.persist(ctx)

	s.state.Notify(NoticeInfo, msgSaved)
	return saved, nil
}

// Delete removes one record. The caller is responsible for confirmation.
func (s *Syncer) Delete(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.begin()()
	defer observe("delete", &err)()
	defer s.report(&err)

	if err := s.deps.Gateway.DeleteOne(ctx, id); err != nil {
		return newFailure(DeleteFailure, msgDeleteFailed, err)
	}

	s.records = without(s.records, id)
	s.filtered = without(s.filtered, id)
	s.persist(ctx)

	s.state.Notify(NoticeInfo, msgDeleted)
	return nil
}

// ClearAll removes every record of the owner. The caller is responsible
// for confirmation.
func (s *Syncer) ClearAll(ctx context.Context, owner string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.begin()()
	defer observe("clear", &err)()
	defer s.report(&err)

	if err := s.deps.Gateway.DeleteAllByOwner(ctx, owner); err != nil {
		return newFailure(ClearFailure, msgClearFailed, err)
	}

	s.records = []models.Record{}
	s.filtered = []models.Record{}
	s.persist(ctx)

	s.state.Notify(NoticeInfo, msgCleared)
	return nil
}

// Filter sets the active criteria and returns the matching records
func (s *Syncer) Filter(search, platform string) []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.criteria = Criteria{Search: search, Platform: platform}
	s.filtered = s.criteria.Apply(s.records)
	return s.snapshot(s.filtered)
}

// Export serializes the records as an indented JSON array. It returns nil
// and posts a notice when there is nothing to export.
func (s *Syncer) Export(now time.Time) (*ExportFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		s.state.Notify(NoticeInfo, msgNothingExport)
		return nil, nil
	}

	data, err := encodeExport(s.records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return &ExportFile{Name: ExportFileName(now), Data: data}, nil
}

// Import merges records from an exported file. Candidates whose media URL
// is already present are skipped; the rest are inserted as one batch after
// confirmer accepts the count, and the collection is then reloaded.
func (s *Syncer) Import(ctx context.Context, owner string, data []byte, confirmer Confirmer) (res ImportResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.begin()()
	defer observe("import", &err)()
	defer s.report(&err)

	candidates, err := parseImport(data)
	if err != nil {
		return ImportResult{}, err
	}

	fresh := dedupe(candidates, s.records)
	if len(fresh) == 0 {
		s.state.Notify(NoticeInfo, msgNoNewItems)
		return ImportResult{Status: ImportNoNewItems}, nil
	}

	records := make([]models.Record, 0, len(fresh))
	for i, c := range fresh {
		r := c.record(owner)
		if err := r.Normalize(); err != nil {
			return ImportResult{}, newFailure(ImportValidationFailure,
				fmt.Sprintf("Import failed: invalid data in item %d: %v", i+1, err), err)
		}
		records = append(records, r)
	}

	ok, err := confirmer.Confirm(ctx, len(records))
	if err != nil {
		return ImportResult{}, fmt.Errorf("import confirmation: %w", err)
	}
	if !ok {
		s.state.Notify(NoticeInfo, msgImportDecline)
		return ImportResult{Status: ImportDeclined, Count: len(records)}, nil
	}

	if err := s.deps.Gateway.BatchInsert(ctx, owner, records); err != nil {
		return ImportResult{}, newFailure(SaveFailure, msgImportFailed, err)
	}
	importedRecords.Add(float64(len(records)))
	log.WithFields(log.Fields{"owner": owner, "count": len(records)}).Info("Collections imported")

	s.load(ctx, owner)
	s.state.Notify(NoticeInfo, fmt.Sprintf("Successfully imported %d items.", len(records)))
	return ImportResult{Status: ImportImported, Count: len(records)}, nil
}

// SuggestPrompt asks the assistant for a fresh prompt idea
func (s *Syncer) SuggestPrompt(ctx context.Context) (prompt string, err error) {
	defer observe("suggest_prompt", &err)()
	defer s.report(&err)

	prompt, err = s.deps.Assistant.SuggestPrompt(ctx)
	if err != nil {
		return "", newFailure(AssistantFailure, fmt.Sprintf("Error: %v", err), err)
	}
	s.state.Notify(NoticeInfo, msgPromptReady)
	return prompt, nil
}

// AnalyzeImage asks the assistant to describe an image. An empty mimeType
// is sniffed from the data.
func (s *Syncer) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (analysis *interfaces.ImageAnalysis, err error) {
	defer observe("analyze_image", &err)()
	defer s.report(&err)

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	analysis, err = s.deps.Assistant.AnalyzeImage(ctx, base64.StdEncoding.EncodeToString(data), mimeType)
	if err != nil {
		return nil, newFailure(AssistantFailure, fmt.Sprintf("Image analysis failed: %v", err), err)
	}
	s.state.Notify(NoticeInfo, msgAnalyzed)
	return analysis, nil
}

// Records returns a copy of the full collection, newest first
func (s *Syncer) Records() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.records)
}

// Filtered returns a copy of the records matching the active criteria
func (s *Syncer) Filtered() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.filtered)
}

// Criteria returns the active filter
func (s *Syncer) Criteria() Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Find looks up a record by ID in the in-memory collection
func (s *Syncer) Find(id string) (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

// Loaded reports whether Load has run at least once
func (s *Syncer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Degraded reports whether the records were last loaded from the local cache
func (s *Syncer) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Owner returns the owner of the last load
func (s *Syncer) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Syncer) replace(records []models.Record) {
	if records == nil {
		records = []models.Record{}
	}
	s.records = records
	s.filtered = s.criteria.Apply(records)
}

func (s *Syncer) persist(ctx context.Context) {
	if err := s.deps.Cache.Save(ctx, s.records); err != nil {
		log.WithError(err).Warn("Failed to write local cache")
	}
}

// report logs a failure and posts its message as a notice
func (s *Syncer) report(err *error) {
	if *err == nil {
		return
	}
	msg := (*err).Error()
	kind := "unknown"
	if f, ok := AsFailure(*err); ok {
		msg = f.Message
		kind = f.Kind.String()
	}
	log.WithError(*err).WithField("kind", kind).Error("Collection operation failed")
	s.state.Notify(NoticeError, msg)
}

func (s *Syncer) snapshot(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)
	return out
}

func without(records []models.Record, id string) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
