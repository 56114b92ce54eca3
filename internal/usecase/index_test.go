package usecase

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/adapter/embedding"
	"supportkb/internal/adapter/fs"
	"supportkb/internal/adapter/judge"
	"supportkb/internal/adapter/store"
	"supportkb/internal/domain"
)

const knowledgeBaseJSON = `[
  {
    "article_id": "KB-001",
    "title": "Resolving E401 Authentication Errors",
    "content": "This error typically occurs when authentication tokens expire.\n1. Log out completely and log back in\n2. Try resetting your password if the login issue persists",
    "category": "troubleshooting",
    "tags": ["authentication", "login", "E401"]
  },
  {
    "article_id": "KB-002",
    "title": "Understanding Your Billing Statement",
    "content": "Your billing statement lists subscription charges, usage charges and taxes.",
    "category": "billing",
    "tags": ["billing", "invoice"]
  }
]`

const performanceMarkdown = `---
category: performance
tags: [performance, slow]
---
# Performance Optimization Guide

Clear the cache weekly and restart the application daily.
`

func writeKnowledgeBase(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kb.json"), []byte(knowledgeBaseJSON), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guides"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "guides", "performance.md"), []byte(performanceMarkdown), 0644))
	return root
}

func openTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestImport_StoresCorpus(t *testing.T) {
	root := writeKnowledgeBase(t)
	st := openTestStore(t)
	emb := embedding.NewHashEmbedder(128)

	uc := NewImportUseCase(st, fs.NewWalker(nil, nil), emb, 2, nil)
	var progress [][2]int
	uc.OnProgress(func(done, total int) { progress = append(progress, [2]int{done, total}) })

	result, err := uc.Import(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesRead)
	assert.Equal(t, 3, result.ArticlesImported)
	assert.Equal(t, 1, result.IDsAssigned)
	assert.Empty(t, result.Errors)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, progress)

	articles, vectors, err := st.LoadCorpus()
	require.NoError(t, err)
	require.Len(t, articles, 3)
	require.Len(t, vectors, 3)
	assert.Equal(t, "KB-001", articles[1].ID, "files are imported in path order")
	assert.Regexp(t, regexp.MustCompile(`^KB-[0-9a-f]{8}$`), articles[0].ID)
	assert.Equal(t, "Performance Optimization Guide", articles[0].Title)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, "hash-128", info.EmbeddingModel)
	assert.Equal(t, 128, info.Dimension)
	assert.Equal(t, store.CurrentSchemaVersion, info.SchemaVersion)
}

func TestImport_SkipsDuplicatesAndBadFiles(t *testing.T) {
	root := writeKnowledgeBase(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "dup.json"),
		[]byte(`[{"article_id":"KB-002","title":"Copy","content":"again"},{"title":"","content":" "}]`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.json"), []byte(`{"article_id":`), 0644))

	uc := NewImportUseCase(openTestStore(t), fs.NewWalker(nil, nil), embedding.NewHashEmbedder(64), 10, nil)
	result, err := uc.Import(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesRead)
	assert.Equal(t, 3, result.ArticlesImported)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Errors, 2)
}

func TestImport_EmptyDirectory(t *testing.T) {
	st := openTestStore(t)
	uc := NewImportUseCase(st, fs.NewWalker(nil, nil), embedding.NewHashEmbedder(64), 10, nil)

	result, err := uc.Import(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, result.ArticlesImported)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Zero(t, info.Articles)
}

func TestCorpusLoader_LoadsStoredVectors(t *testing.T) {
	root := writeKnowledgeBase(t)
	st := openTestStore(t)
	emb := embedding.NewHashEmbedder(256)

	_, err := NewImportUseCase(st, fs.NewWalker(nil, nil), emb, 10, nil).Import(context.Background(), root)
	require.NoError(t, err)

	counting := &countingEmbedder{inner: emb}
	r := NewKnowledgeRetriever(counting, judge.NewOffline(), RetrieverOptions{})
	rebuilt, err := NewCorpusLoader(st, counting, r, nil).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Zero(t, counting.calls, "stored vectors should be reused")
	assert.Equal(t, 3, r.Size())

	ticket := domain.TicketAnalysis{
		KeyIssues:      []string{"login", "authentication error"},
		CustomerIntent: "log back in",
		ErrorCodes:     []string{"E401"},
	}
	result, err := r.Retrieve(context.Background(), ticket, 3)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelevantArticles)
	assert.Equal(t, "KB-001", result.RelevantArticles[0].ArticleID)
}

func TestCorpusLoader_ReembedsOnModelChange(t *testing.T) {
	root := writeKnowledgeBase(t)
	st := openTestStore(t)

	_, err := NewImportUseCase(st, fs.NewWalker(nil, nil), embedding.NewHashEmbedder(64), 10, nil).
		Import(context.Background(), root)
	require.NoError(t, err)

	next := embedding.NewHashEmbedder(128)
	r := NewKnowledgeRetriever(next, judge.NewOffline(), RetrieverOptions{})
	rebuilt, err := NewCorpusLoader(st, next, r, nil).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, rebuilt)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, "hash-128", info.EmbeddingModel)
	assert.Equal(t, 128, info.Dimension)

	again, err := NewCorpusLoader(st, next, r, nil).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, again)
}

// misreportingEmbedder claims a larger dimension than it produces.
type misreportingEmbedder struct {
	countingEmbedder
	claimed int
}

func (m *misreportingEmbedder) Dimension() int { return m.claimed }

func TestImport_RejectsMisreportedDimension(t *testing.T) {
	root := writeKnowledgeBase(t)
	st := openTestStore(t)

	liar := &misreportingEmbedder{countingEmbedder: countingEmbedder{inner: embedding.NewHashEmbedder(64)}, claimed: 1536}
	_, err := NewImportUseCase(st, fs.NewWalker(nil, nil), liar, 10, nil).Import(context.Background(), root)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	info, err := st.Info()
	require.NoError(t, err)
	assert.Zero(t, info.Articles)
}

func TestCorpusLoader_MisreportedDimensionDoesNotRewrite(t *testing.T) {
	root := writeKnowledgeBase(t)
	st := openTestStore(t)

	_, err := NewImportUseCase(st, fs.NewWalker(nil, nil), embedding.NewHashEmbedder(64), 10, nil).
		Import(context.Background(), root)
	require.NoError(t, err)

	liar := &misreportingEmbedder{countingEmbedder: countingEmbedder{inner: embedding.NewHashEmbedder(64)}, claimed: 1536}
	r := NewKnowledgeRetriever(liar, judge.NewOffline(), RetrieverOptions{})
	for i := 0; i < 3; i++ {
		_, err := NewCorpusLoader(st, liar, r, nil).Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	}

	info, err := st.Info()
	require.NoError(t, err)
	assert.Equal(t, 64, info.Dimension)
	assert.Equal(t, "hash-64", info.EmbeddingModel)
	assert.Zero(t, r.Size())
}

func TestNewArticleID(t *testing.T) {
	a, b := NewArticleID(), NewArticleID()
	assert.Regexp(t, `^KB-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
}

type countingEmbedder struct {
	inner *embedding.HashEmbedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *countingEmbedder) ModelName() string { return c.inner.ModelName() }
