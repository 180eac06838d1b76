package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/rfpgest/internal/pathstore"
	"github.com/dgallion1/rfpgest/internal/section"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePathstore implements the subset of the pathstore HTTP API the client uses.
type fakePathstore struct {
	mu    sync.Mutex
	nodes map[string]json.RawMessage
}

func newFakePathstore(t *testing.T) *httptest.Server {
	f := &fakePathstore{nodes: map[string]json.RawMessage{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakePathstore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.EscapedPath(), "/kv/")
	switch {
	case r.Method == http.MethodPut:
		var body struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.nodes[key] = body.Value
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet && strings.HasSuffix(key, "/*"):
		prefix := strings.TrimSuffix(key, "*")
		var nodes []map[string]any
		for k, v := range f.nodes {
			if strings.HasPrefix(k, prefix) {
				nodes = append(nodes, map[string]any{"key_path": k, "value": v})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"nodes": nodes})
	case r.Method == http.MethodGet:
		v, ok := f.nodes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": v})
	case r.Method == http.MethodDelete:
		delete(f.nodes, key)
		if r.URL.Query().Get("children") == "true" {
			for k := range f.nodes {
				if strings.HasPrefix(k, key+"/") {
					delete(f.nodes, k)
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func backends(t *testing.T) map[string]Store {
	srv := newFakePathstore(t)
	return map[string]Store{
		"memory":    NewMemory(),
		"pathstore": NewPathstore(pathstore.NewClient(srv.URL, "key")),
	}
}

func TestStoreBackends(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			docID := "City RFP/24#001"

			require.NoError(t, s.Upsert(ctx, Record{ID: "b", PartitionKey: docID, Kind: KindSection, Order: 1, SectionContent: "two"}))
			require.NoError(t, s.Upsert(ctx, Record{ID: "a", PartitionKey: docID, Kind: KindSection, Order: 0, SectionContent: "one"}))
			require.NoError(t, s.Upsert(ctx, Record{ID: "toc", PartitionKey: docID, Kind: KindTOC}))
			require.NoError(t, s.Upsert(ctx, Record{ID: "x", PartitionKey: "other", Kind: KindSection}))

			rec, err := s.Get(ctx, docID, "a")
			require.NoError(t, err)
			assert.Equal(t, "one", rec.SectionContent)
			assert.False(t, rec.UpdatedAt.IsZero())

			_, err = s.Get(ctx, docID, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			recs, err := s.Query(ctx, docID)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, KindTOC, recs[0].Kind)
			assert.Equal(t, "a", recs[1].ID)
			assert.Equal(t, "b", recs[2].ID)

			secs, err := Sections(ctx, s, docID)
			require.NoError(t, err)
			assert.Len(t, secs, 2)

			docs, err := s.Documents(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{docID, "other"}, docs)

			require.NoError(t, s.DeleteDocument(ctx, docID))
			_, err = s.Query(ctx, docID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.DeleteDocument(ctx, docID), ErrNotFound)

			docs, err = s.Documents(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"other"}, docs)
		})
	}
}

func TestUpsertRequiresKeys(t *testing.T) {
	assert.Error(t, NewMemory().Upsert(context.Background(), Record{ID: "a"}))
}

// flakyStore fails upserts for the listed record IDs.
type flakyStore struct {
	*Memory
	fail map[string]bool
}

func (f *flakyStore) Upsert(ctx context.Context, rec Record) error {
	if f.fail[rec.ID] {
		return errors.New("throttled")
	}
	return f.Memory.Upsert(ctx, rec)
}

func TestPersistSections(t *testing.T) {
	sections := []section.Section{
		{Heading: "1 Intro", Content: "Hello\nPage Number: 1\n", PageNumber: "1", Order: 0},
		{Heading: "2 Scope/Work", Content: "World\n", PageNumber: "2", Order: 1},
	}
	toc := section.NewTOC("1 | Intro | 1 | [1,1]")

	t.Run("all written", func(t *testing.T) {
		s := NewMemory()
		res, err := PersistSections(context.Background(), s, testLogger(), "rfp", sections, toc)
		require.NoError(t, err)
		assert.Equal(t, PersistResult{Written: 3}, res)

		rec, err := s.Get(context.Background(), "rfp", "rfp - 2 Scope Work")
		require.NoError(t, err)
		assert.Equal(t, "2 Scope/Work", rec.SectionID)
		assert.Equal(t, "World\n", rec.SectionContent)
		assert.Equal(t, "rfp", rec.PartitionKey)

		tocRec, err := s.Get(context.Background(), "rfp", TOCRecordID)
		require.NoError(t, err)
		assert.Equal(t, "1 | Intro | 1 | [1,1]", tocRec.TableOfContents)
		require.Len(t, tocRec.TOCEntries, 1)
		assert.Equal(t, 1, tocRec.TOCEntries[0].StartPage)
	})

	t.Run("failures aggregated without rollback", func(t *testing.T) {
		s := &flakyStore{Memory: NewMemory(), fail: map[string]bool{"rfp - 1 Intro": true}}
		res, err := PersistSections(context.Background(), s, testLogger(), "rfp", sections, toc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rfp - 1 Intro")
		assert.Equal(t, PersistResult{Written: 2, Failed: 1}, res)

		_, err = s.Get(context.Background(), "rfp", TOCRecordID)
		assert.NoError(t, err)
	})
}

func TestAttachRequirementsAndReview(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Upsert(ctx, Record{ID: "rfp - 1 Intro", PartitionKey: "rfp", Kind: KindSection, SectionContent: "x"}))

	reqs := []Requirement{{SectionName: "Intro", Content: "shall", IsRequirement: "yes"}}
	require.NoError(t, AttachRequirements(ctx, s, "rfp", "rfp - 1 Intro", "looked", reqs))
	rec, err := s.Get(ctx, "rfp", "rfp - 1 Intro")
	require.NoError(t, err)
	assert.True(t, rec.Extracted)
	assert.False(t, rec.Reviewed)
	assert.Equal(t, "looked", rec.Analysis)
	assert.Equal(t, reqs, rec.Requirements)

	require.NoError(t, MarkReviewed(ctx, s, "rfp", "rfp - 1 Intro", nil))
	rec, err = s.Get(ctx, "rfp", "rfp - 1 Intro")
	require.NoError(t, err)
	assert.True(t, rec.Reviewed)
	assert.Empty(t, rec.Requirements)

	assert.ErrorIs(t, MarkReviewed(ctx, s, "rfp", "nope", nil), ErrNotFound)
}

func TestPersistSections_IDCollisions(t *testing.T) {
	s := NewMemory()
	sections := []section.Section{
		{Heading: "TOC", Content: "heading named toc\n", Order: 0},
		{Heading: "A/B", Content: "slash\n", Order: 1},
		{Heading: "A B", Content: "space\n", Order: 2},
	}
	res, err := PersistSections(context.Background(), s, testLogger(), "rfp", sections, section.NewTOC("1 | A | 1 | [1,1]"))
	require.NoError(t, err)
	assert.Equal(t, PersistResult{Written: 4}, res)

	rec, err := s.Get(context.Background(), "rfp", "rfp - TOC")
	require.NoError(t, err)
	assert.Equal(t, KindSection, rec.Kind)
	assert.Equal(t, "heading named toc\n", rec.SectionContent)

	tocRec, err := s.Get(context.Background(), "rfp", TOCRecordID)
	require.NoError(t, err)
	assert.Equal(t, KindTOC, tocRec.Kind)

	first, err := s.Get(context.Background(), "rfp", "rfp - A B")
	require.NoError(t, err)
	assert.Equal(t, "A/B", first.SectionID)
	second, err := s.Get(context.Background(), "rfp", "rfp - A B (2)")
	require.NoError(t, err)
	assert.Equal(t, "A B", second.SectionID)
	assert.Equal(t, "space\n", second.SectionContent)
}
