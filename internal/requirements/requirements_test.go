package requirements

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/rfpgest/internal/llm"
	"github.com/dgallion1/rfpgest/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLLM struct {
	replies []string
	reqs    []llm.Request
}

func (f *fakeLLM) Model() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	i := len(f.reqs)
	f.reqs = append(f.reqs, req)
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return `{"thought_process":"","content":""}`, nil
}

func reply(t *testing.T, thought, content string) string {
	b, err := json.Marshal(map[string]string{"thought_process": thought, "content": content})
	require.NoError(t, err)
	return string(b)
}

func TestParseLines(t *testing.T) {
	content := "Staffing Plan | 6 | 2.3.2 | The Contractor shall deliver a plan. | yes\n" +
		"Pricing | 7 | 3.1 | Rates A | B | C apply | NO\n" +
		"garbage line\n" +
		"Bad flag | 1 | 1 | text | maybe\n" +
		"\n"

	recs, skipped := ParseLines(content)
	assert.Equal(t, 2, skipped)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{
		SectionName:   "Staffing Plan",
		PageNumber:    "6",
		SectionNumber: "2.3.2",
		Content:       "The Contractor shall deliver a plan.",
		IsRequirement: "yes",
	}, recs[0])
	assert.Equal(t, "Rates A | B | C apply", recs[1].Content)
	assert.Equal(t, "no", recs[1].IsRequirement)
}

func TestExtractor_SingleSection(t *testing.T) {
	f := &fakeLLM{replies: []string{reply(t, "saw 2.3", "Tasks | 5 | 2.3 | Vendor shall staff. | yes")}}
	e := NewExtractor(f, testLogger())

	ext, err := e.Extract(context.Background(), "2.3 Tasks\nVendor shall staff.\nPage Number: 5\n")
	require.NoError(t, err)
	assert.Equal(t, "saw 2.3", ext.Analysis)
	require.Len(t, ext.Output, 1)
	assert.Equal(t, "5", ext.Output[0].PageNumber)
	require.Len(t, f.reqs, 1)
	assert.True(t, f.reqs[0].JSON)
	assert.Equal(t, "extract", f.reqs[0].Step)
	assert.Contains(t, f.reqs[0].User, "Vendor shall staff.")
}

func TestExtractor_SplitsLongSections(t *testing.T) {
	var sb strings.Builder
	for range 40 {
		sb.WriteString("The vendor shall provide weekly reports to the agency.\n")
	}
	f := &fakeLLM{replies: []string{
		reply(t, "first", "A | 1 | 1 | one | yes"),
		reply(t, "second", "B | 2 | 2 | two | no"),
		reply(t, "third", "C | 3 | 3 | three | yes"),
		reply(t, "fourth", "D | 4 | 4 | four | yes"),
	}}
	e := NewExtractor(f, testLogger())
	e.MaxSectionTokens = 150

	ext, err := e.Extract(context.Background(), sb.String())
	require.NoError(t, err)
	assert.Greater(t, len(f.reqs), 1)
	require.Len(t, ext.Output, len(f.reqs))
	assert.Equal(t, "A", ext.Output[0].SectionName)
	assert.Equal(t, "B", ext.Output[1].SectionName)
	assert.True(t, strings.HasPrefix(ext.Analysis, "first\n\nsecond"))
}

func TestExtractor_MalformedReply(t *testing.T) {
	f := &fakeLLM{replies: []string{"no json here"}}
	_, err := NewExtractor(f, testLogger()).Extract(context.Background(), "content")
	assert.ErrorIs(t, err, llm.ErrMalformedOutput)
}

func TestExtractor_EmptyOutputIsNotNil(t *testing.T) {
	f := &fakeLLM{replies: []string{reply(t, "nothing", "")}}
	ext, err := NewExtractor(f, testLogger()).Extract(context.Background(), "Background only.")
	require.NoError(t, err)
	assert.NotNil(t, ext.Output)
	assert.Empty(t, ext.Output)
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	recs := []store.Record{
		{ID: "a", Kind: store.KindSection, SectionContent: "x", Extracted: true, Reviewed: true},
		{ID: "b", Kind: store.KindSection, SectionContent: "y", Extracted: true},
		{ID: "c", Kind: store.KindSection, SectionContent: "z"},
		{ID: "d", Kind: store.KindSection, SectionContent: "w"},
		{ID: "toc", Kind: store.KindTOC, TableOfContents: "t"},
		{ID: "empty", Kind: store.KindSection},
	}
	for _, r := range recs {
		r.PartitionKey = "rfp"
		require.NoError(t, s.Upsert(ctx, r))
	}

	p, err := Progress(ctx, s, "rfp")
	require.NoError(t, err)
	assert.Equal(t, ProgressReport{Total: 4, Extracted: 2, Reviewed: 1, ExtractionPercent: 50, ReviewPercent: 25}, p)

	_, err = Progress(ctx, s, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFlagged(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Upsert(ctx, store.Record{ID: "a", PartitionKey: "rfp", Kind: store.KindSection, Requirements: []Record{
		{Content: "must", IsRequirement: "yes"},
		{Content: "info", IsRequirement: "no"},
	}}))
	got, err := Flagged(ctx, s, "rfp")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "must", got[0].Content)
}
