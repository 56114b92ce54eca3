package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
)

func openStore(t *testing.T) *BoltStore {
	t.Helper()
	st, err := NewBoltStore(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func corpus() ([]domain.Article, [][]float32) {
	articles := []domain.Article{
		{ID: "KB-2", Title: "Billing", Content: "Update the card.", Category: "billing", Tags: []string{"billing"}},
		{ID: "KB-1", Title: "Login", Content: "Reset the password.", Category: "authentication"},
		{ID: "KB-3", Title: "Speed", Content: "Clear the cache."},
	}
	vectors := [][]float32{{0.5, -1.25}, {0, 1}, {3.5, float32(1e-7)}}
	return articles, vectors
}

func TestBoltStore_SaveAndLoadKeepsOrder(t *testing.T) {
	st := openStore(t)
	articles, vectors := corpus()

	require.NoError(t, st.SaveCorpus(articles, vectors, "hash-2"))

	gotArticles, gotVectors, err := st.LoadCorpus()
	require.NoError(t, err)
	assert.Equal(t, articles, gotArticles)
	assert.Equal(t, vectors, gotVectors)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, 3, info.Articles)
	assert.Equal(t, "hash-2", info.EmbeddingModel)
	assert.Equal(t, 2, info.Dimension)
}

func TestBoltStore_SaveReplacesCorpus(t *testing.T) {
	st := openStore(t)
	articles, vectors := corpus()
	require.NoError(t, st.SaveCorpus(articles, vectors, "hash-2"))

	require.NoError(t, st.SaveCorpus(articles[:1], vectors[:1], "hash-2"))

	got, _, err := st.LoadCorpus()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "KB-2", got[0].ID)
}

func TestBoltStore_SaveRejectsMismatches(t *testing.T) {
	st := openStore(t)
	articles, vectors := corpus()

	err := st.SaveCorpus(articles, vectors[:2], "m")
	assert.True(t, errors.Is(err, domain.ErrEmbeddingCount))

	err = st.SaveCorpus(articles[:2], [][]float32{{1, 2}, {1}}, "m")
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	info, err := st.Info()
	require.NoError(t, err)
	assert.Zero(t, info.Articles)
}

func TestBoltStore_EmptyCorpus(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.SaveCorpus(nil, nil, "hash-8"))

	articles, vectors, err := st.LoadCorpus()
	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.Empty(t, vectors)
}

func TestBoltStore_GetArticle(t *testing.T) {
	st := openStore(t)
	articles, vectors := corpus()
	require.NoError(t, st.SaveCorpus(articles, vectors, "m"))

	a, err := st.GetArticle("KB-1")
	require.NoError(t, err)
	assert.Equal(t, "Login", a.Title)

	_, err = st.GetArticle("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoltStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")
	st, err := NewBoltStore(path)
	require.NoError(t, err)
	articles, vectors := corpus()
	require.NoError(t, st.SaveCorpus(articles, vectors, "m"))
	require.NoError(t, st.Close())

	st, err = NewBoltStore(path)
	require.NoError(t, err)
	defer st.Close()

	got, _, err := st.LoadCorpus()
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMigrations(t *testing.T) {
	st := openStore(t)
	fp := EmbeddingFingerprint("text-embedding-3-small", 1536)

	rebuild, _, err := st.NeedsRebuild(fp)
	require.NoError(t, err)
	assert.False(t, rebuild, "a fresh store has nothing to rebuild")

	require.NoError(t, st.Migrate(fp))

	schema, err := st.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, schema.Version)
	assert.Equal(t, fp, schema.Fingerprint)

	rebuild, _, err = st.NeedsRebuild(fp)
	require.NoError(t, err)
	assert.False(t, rebuild)

	rebuild, reason, err := st.NeedsRebuild(EmbeddingFingerprint("hash-256", 256))
	require.NoError(t, err)
	assert.True(t, rebuild)
	assert.Equal(t, "embedding model changed", reason)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.SchemaVersion)
}

func TestMigrations_NewerSchemaNeedsRebuild(t *testing.T) {
	st := openStore(t)
	require.NoError(t, st.SetSchemaInfo(&SchemaInfo{Version: CurrentSchemaVersion + 1}))

	rebuild, reason, err := st.NeedsRebuild("x")
	require.NoError(t, err)
	assert.True(t, rebuild)
	assert.Contains(t, reason, "newer version")
	assert.Error(t, st.Migrate("x"))
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25e-5}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
