package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/assistant"
	"ai-collection/server/internal/auth"
	"ai-collection/server/internal/collection"
	"ai-collection/server/internal/interfaces"
	"ai-collection/server/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authenticator is the identity provider plus token verification
type Authenticator interface {
	interfaces.IdentityProvider
	TokenVerifier
}

type Handlers struct {
	auth           Authenticator
	registry       *Registry
	hub            *NoticeHub
	maxUploadBytes int64
	now            func() time.Time
}

func NewHandlers(authenticator Authenticator, registry *Registry, hub *NoticeHub, maxUploadBytes int64) *Handlers {
	return &Handlers{
		auth:           authenticator,
		registry:       registry,
		hub:            hub,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps a core failure to a status code and its user message
func writeFailure(w http.ResponseWriter, err error) {
	f, ok := collection.AsFailure(err)
	if !ok {
		log.WithError(err).Error("Unhandled error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusBadGateway
	switch f.Kind {
	case collection.AuthFailure:
		status = http.StatusUnauthorized
		if errors.Is(err, auth.ErrUnauthorizedDomain) {
			status = http.StatusForbidden
		}
	case collection.ImportValidationFailure:
		status = http.StatusBadRequest
	case collection.SaveFailure:
		if errors.Is(err, models.ErrUnknownPlatform) {
			status = http.StatusBadRequest
		}
	case collection.AssistantFailure:
		if errors.Is(err, assistant.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
	}
	writeError(w, status, f.Message)
}

func confirmed(r *http.Request) bool {
	return r.URL.Query().Get("confirm") == "true"
}

// syncer returns the signed-in owner's syncer, loading the collection first
// when this syncer has not loaded it yet
func (h *Handlers) syncer(w http.ResponseWriter, r *http.Request) (*collection.Syncer, *interfaces.User, bool) {
	s, user, _, ok := h.loadedSyncer(w, r)
	return s, user, ok
}

// loadedSyncer is syncer plus the notice of the load it triggered, if any
func (h *Handlers) loadedSyncer(w http.ResponseWriter, r *http.Request) (*collection.Syncer, *interfaces.User, string, bool) {
	s, user, ok := h.session(w, r)
	if !ok {
		return nil, nil, "", false
	}
	var notice string
	if !s.Loaded() {
		notice = s.Load(r.Context(), user.ID).Notice
	}
	return s, user, notice, true
}

// session returns the signed-in owner's syncer as is
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*collection.Syncer, *interfaces.User, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "You must be logged in.")
		return nil, nil, false
	}
	s, err := h.registry.Get(user.ID)
	if err != nil {
		log.WithError(err).WithField("owner", user.ID).Error("Failed to create collection state")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, nil, false
	}
	return s, user, true
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "ai-collection",
		"clients": h.hub.ClientCount(),
	})
}

// Auth endpoints

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var creds interfaces.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.auth.SignIn(r.Context(), creds)
	if err != nil {
		log.WithError(err).WithField("email", creds.Email).Warn("Sign-in failed")
		writeFailure(w, collection.NewAuthFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context(), tokenFromContext(r.Context())); err != nil {
		writeFailure(w, collection.NewAuthFailure(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

// Collection endpoints

type listResponse struct {
	Records  []models.Record     `json:"records"`
	Degraded bool                `json:"degraded"`
	Notice   string              `json:"notice,omitempty"`
	Filter   collection.Criteria `json:"filter"`
}

func (h *Handlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	s, _, notice, ok := h.loadedSyncer(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	criteria := collection.Criteria{Search: q.Get("search"), Platform: q.Get("platform")}
	writeJSON(w, http.StatusOK, listResponse{
		Records:  s.Filter(criteria.Search, criteria.Platform),
		Degraded: s.Degraded(),
		Notice:   notice,
		Filter:   criteria,
	})
}

func (h *Handlers) ReloadCollections(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.session(w, r)
	if !ok {
		return
	}

	res := s.Load(r.Context(), user.ID)
	writeJSON(w, http.StatusOK, listResponse{
		Records:  s.Filtered(),
		Degraded: res.Degraded,
		Notice:   res.Notice,
		Filter:   s.Criteria(),
	})
}

func (h *Handlers) AddCollection(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.syncer(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(r.FormValue("data")), &draft); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid collection data")
		return
	}

	media, _, err := readUpload(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select an image first!")
		return
	}

	record, err := s.Add(r.Context(), user.ID, draft, media)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handlers) GetParameters(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.syncer(w, r)
	if !ok {
		return
	}

	record, found := s.Find(chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, record.ParametersText())
}

func (h *Handlers) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.syncer(w, r)
	if !ok {
		return
	}
	if !confirmed(r) {
		writeError(w, http.StatusPreconditionRequired, "Are you sure you want to delete this item? Repeat with confirm=true.")
		return
	}

	id := chi.URLParam(r, "id")
	if _, found := s.Find(id); !found {
		writeError(w, http.StatusNotFound, "Collection not found")
		return
	}
	if err := s.Delete(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearCollections(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.syncer(w, r)
	if !ok {
		return
	}
	if !confirmed(r) {
		writeError(w, http.StatusPreconditionRequired,
			"Are you sure you want to delete ALL your collections? This action cannot be undone. Repeat with confirm=true.")
		return
	}

	if err := s.ClearAll(r.Context(), user.ID); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ExportCollections(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.syncer(w, r)
	if !ok {
		return
	}

	file, err := s.Export(h.now())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if file == nil {
		w.Header().Set("X-Notice", s.State().LastNotice().Message)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func (h *Handlers) ImportCollections(w http.ResponseWriter, r *http.Request) {
	s, user, ok := h.syncer(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read import file")
		return
	}

	confirm := confirmed(r)
	res, err := s.Import(r.Context(), user.ID, data, collection.ConfirmFunc(func(context.Context, int) (bool, error) {
		return confirm, nil
	}))
	if err != nil {
		writeFailure(w, err)
		return
	}

	status := string(res.Status)
	if res.Status == collection.ImportDeclined {
		status = "confirmation_required"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"count":  res.Count,
		"notice": s.State().LastNotice().Message,
	})
}

// Assistant endpoints

func (h *Handlers) SuggestPrompt(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}

	prompt, err := s.SuggestPrompt(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (h *Handlers) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	data, mimeType, err := readUpload(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select an image first!")
		return
	}

	analysis, err := s.AnalyzeImage(r.Context(), data, mimeType)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// Notices streams the owner's notices over a WebSocket
func (h *Handlers) Notices(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "You must be logged in.")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.hub.Attach(user.ID, conn)
}

func readUpload(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty upload")
	}
	return data, header.Header.Get("Content-Type"), nil
}
