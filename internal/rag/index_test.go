package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarlabs/safar/internal/logging"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := Open(":memory:", logging.New(os.Stderr, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewIndex(db, IndexConfig{ChunkSize: 100, ChunkOverlap: 20})
}

func TestIngestAndQuery(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.IngestDocument("refund-policy.md",
		"Cancelled tickets are refunded at seventy percent of the paid fare within five business days.")
	require.NoError(t, err)
	_, err = ix.IngestDocument("baggage-policy.md",
		"Each passenger may check one bag up to twenty kilograms on domestic flights.")
	require.NoError(t, err)

	snippets, err := ix.Query("How much refund do I get for a cancelled ticket?", 3)
	require.NoError(t, err)

	require.NotEmpty(t, snippets)
	assert.Equal(t, "refund-policy.md", snippets[0].Source)
	assert.Contains(t, snippets[0].Document, "seventy percent")
}

func TestQueryEmptyStringReturnsNothing(t *testing.T) {
	ix := newTestIndex(t)

	snippets, err := ix.Query("   ", 3)

	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestReingestReplacesChunks(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.IngestDocument("policy.md", "old content about refunds")
	require.NoError(t, err)
	_, err = ix.IngestDocument("policy.md", "new content about baggage")
	require.NoError(t, err)

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snippets, err := ix.Query("refunds", 3)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestChunkIDFormat(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.IngestDocument("faq.txt", strings.Repeat("سفر خوب ", 60))
	require.NoError(t, err)

	snippets, err := ix.Query("سفر", 10)
	require.NoError(t, err)
	require.NotEmpty(t, snippets)

	for _, s := range snippets {
		parts := strings.Split(s.ID, "_")
		require.GreaterOrEqual(t, len(parts), 3)
		assert.Equal(t, "faq.txt", parts[0])
		assert.Len(t, parts[len(parts)-1], 8)
	}
}

func TestIngestFolder(t *testing.T) {
	ix := newTestIndex(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("visa rules for Kish island"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("checked baggage allowance"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   "), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.pdf"), []byte("binary"), 0o644))

	stats, err := ix.IngestFolder(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Len(t, stats.SkippedFiles, 1)

	n, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngestFolderMissingDir(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.IngestFolder(filepath.Join(t.TempDir(), "nope"))

	assert.Error(t, err)
}

func TestFtsQuery(t *testing.T) {
	assert.Equal(t, `"refund" OR "policy"`, ftsQuery("refund policy?"))
	assert.Equal(t, `"چمدان"`, ftsQuery("چمدان؟"))
	assert.Equal(t, "", ftsQuery("   "))
}

func TestChunkText(t *testing.T) {
	chunks := chunkText(strings.Repeat("a", 250), 100, 20)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	// Each window starts 80 runes after the previous one.
	assert.Len(t, chunks[2], 250-2*80)

	assert.Nil(t, chunkText("", 100, 20))
	assert.Equal(t, []string{"short"}, chunkText("short", 100, 20))
}
