package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-collection/server/internal/interfaces"
	"ai-collection/server/internal/models"
)

var errOffline = errors.New("connection refused")

type fakeGateway struct {
	mu       sync.Mutex
	rows     []models.Record
	clock    time.Time
	listErr  error
	insErr   error
	batchErr error
	delErr   error
	clearErr error
	batches  [][]models.Record
}

func newFakeGateway(rows ...models.Record) *fakeGateway {
	return &fakeGateway{rows: rows, clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (g *fakeGateway) stamp(r models.Record) models.Record {
	g.clock = g.clock.Add(time.Second)
	r.ID = uuid.NewString()
	r.CreatedAt = g.clock
	return r
}

func (g *fakeGateway) List(_ context.Context, ownerID string) ([]models.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var out []models.Record
	for i := len(g.rows) - 1; i >= 0; i-- {
		if g.rows[i].OwnerID == ownerID {
			out = append(out, g.rows[i])
		}
	}
	return out, nil
}

func (g *fakeGateway) Insert(_ context.Context, r models.Record) (models.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.insErr != nil {
		return models.Record{}, g.insErr
	}
	r = g.stamp(r)
	g.rows = append(g.rows, r)
	return r, nil
}

func (g *fakeGateway) BatchInsert(_ context.Context, ownerID string, records []models.Record) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.batchErr != nil {
		return g.batchErr
	}
	g.batches = append(g.batches, records)
	for _, r := range records {
		r.OwnerID = ownerID
		g.rows = append(g.rows, g.stamp(r))
	}
	return nil
}

func (g *fakeGateway) DeleteOne(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.delErr != nil {
		return g.delErr
	}
	rows := g.rows[:0]
	for _, r := range g.rows {
		if r.ID != id {
			rows = append(rows, r)
		}
	}
	g.rows = rows
	return nil
}

func (g *fakeGateway) DeleteAllByOwner(_ context.Context, ownerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clearErr != nil {
		return g.clearErr
	}
	rows := g.rows[:0]
	for _, r := range g.rows {
		if r.OwnerID != ownerID {
			rows = append(rows, r)
		}
	}
	g.rows = rows
	return nil
}

type memoryCache struct {
	records []models.Record
	saves   int
	saveErr error
}

func (c *memoryCache) Load(context.Context) []models.Record {
	return c.records
}

func (c *memoryCache) Save(_ context.Context, records []models.Record) error {
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.records = append([]models.Record(nil), records...)
	return nil
}

type fakeUploader struct {
	err   error
	calls int
}

func (u *fakeUploader) Upload(context.Context, []byte) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return fmt.Sprintf("https://media.example/%d.png", u.calls), nil
}

type fakeAssistant struct {
	prompt   string
	analysis *interfaces.ImageAnalysis
	err      error
	gotMime  string
	gotImage string
}

func (a *fakeAssistant) SuggestPrompt(context.Context) (string, error) {
	return a.prompt, a.err
}

func (a *fakeAssistant) AnalyzeImage(_ context.Context, imageBase64, mimeType string) (*interfaces.ImageAnalysis, error) {
	a.gotImage = imageBase64
	a.gotMime = mimeType
	return a.analysis, a.err
}

type testEnv struct {
	gateway   *fakeGateway
	cache     *memoryCache
	uploader  *fakeUploader
	assistant *fakeAssistant
	syncer    *Syncer
}

func newTestEnv(rows ...models.Record) *testEnv {
	env := &testEnv{
		gateway:   newFakeGateway(rows...),
		cache:     &memoryCache{},
		uploader:  &fakeUploader{},
		assistant: &fakeAssistant{},
	}
	env.syncer = NewSyncer(Deps{
		Gateway:   env.gateway,
		Cache:     env.cache,
		Uploader:  env.uploader,
		Assistant: env.assistant,
	}, nil)
	return env
}

// seed inserts records through the gateway so they carry IDs; the last
// one given is the newest
func seed(owner string, records ...models.Record) []models.Record {
	g := newFakeGateway()
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		r.OwnerID = owner
		saved, _ := g.Insert(context.Background(), r)
		out = append(out, saved)
	}
	return out
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
