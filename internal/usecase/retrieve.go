package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"supportkb/internal/adapter/cache"
	"supportkb/internal/adapter/embedding"
	"supportkb/internal/adapter/index"
	"supportkb/internal/domain"
	"supportkb/internal/port"
)

const (
	DefaultTopK            = 5
	DefaultJudgeCandidates = 3
)

// RetrieverOptions tunes a KnowledgeRetriever. Zero values select defaults.
type RetrieverOptions struct {
	TopK            int
	JudgeCandidates int
	// MinRelevance drops candidates scoring below it; 0 disables the filter.
	MinRelevance float64
	Cache        *cache.QueryCache
	IndexBuilder port.IndexBuilder
	Logger       *zap.Logger
}

// snapshot is an immutable loaded corpus: articles[i] is index position i.
type snapshot struct {
	articles   []domain.Article
	index      port.VectorIndex
	generation uint64
}

// KnowledgeRetriever owns the article corpus and its vector index and answers
// retrieval requests for analyzed tickets.
//
// Retrieve may be called concurrently. Loads are serialized and publish a
// fully built snapshot atomically, so a query sees either the old corpus or
// the new one.
type KnowledgeRetriever struct {
	embedder        port.Embedder
	judge           port.Judge
	buildIndex      port.IndexBuilder
	cache           *cache.QueryCache
	logger          *zap.Logger
	topK            int
	judgeCandidates int
	minRelevance    float64

	loadMu     sync.Mutex
	generation uint64
	current    atomic.Pointer[snapshot]
}

func NewKnowledgeRetriever(embedder port.Embedder, judge port.Judge, opts RetrieverOptions) *KnowledgeRetriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.JudgeCandidates <= 0 {
		opts.JudgeCandidates = DefaultJudgeCandidates
	}
	if opts.IndexBuilder == nil {
		opts.IndexBuilder = index.Builder
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &KnowledgeRetriever{
		embedder:        embedder,
		judge:           judge,
		buildIndex:      opts.IndexBuilder,
		cache:           opts.Cache,
		logger:          opts.Logger,
		topK:            opts.TopK,
		judgeCandidates: opts.JudgeCandidates,
		minRelevance:    opts.MinRelevance,
	}
}

// Load embeds the corpus and replaces the loaded knowledge base.
// An empty corpus is valid and makes every retrieval fall back.
// On error the previously loaded corpus stays in place.
func (r *KnowledgeRetriever) Load(ctx context.Context, articles []domain.Article) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	var vectors [][]float32
	if len(articles) > 0 {
		texts := make([]string, len(articles))
		for i, a := range articles {
			texts[i] = a.CorpusText()
		}

		var err error
		vectors, err = r.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed corpus: %w", err)
		}
	}

	return r.publish(articles, vectors)
}

// LoadEmbedded replaces the loaded knowledge base with articles whose
// embeddings were computed earlier; vectors[i] must belong to articles[i].
func (r *KnowledgeRetriever) LoadEmbedded(articles []domain.Article, vectors [][]float32) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	return r.publish(articles, vectors)
}

// publish builds the index and swaps in a new snapshot. Callers hold loadMu.
func (r *KnowledgeRetriever) publish(articles []domain.Article, vectors [][]float32) error {
	if len(vectors) != len(articles) {
		return fmt.Errorf("%d vectors for %d articles: %w", len(vectors), len(articles), domain.ErrEmbeddingCount)
	}

	idx, err := r.buildIndex(vectors)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	r.generation++
	r.current.Store(&snapshot{
		articles:   append([]domain.Article(nil), articles...),
		index:      idx,
		generation: r.generation,
	})
	if r.cache != nil {
		r.cache.Invalidate()
	}

	r.logger.Info("knowledge base loaded",
		zap.Int("articles", len(articles)),
		zap.Int("dimension", idx.Dimension()),
		zap.Uint64("generation", r.generation))
	return nil
}

// Size returns the number of loaded articles.
func (r *KnowledgeRetriever) Size() int {
	snap := r.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.articles)
}

// Articles returns a copy of the loaded corpus in index order.
func (r *KnowledgeRetriever) Articles() []domain.Article {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	return append([]domain.Article(nil), snap.articles...)
}

// Search returns the ranked candidates for a query text without judging them.
func (r *KnowledgeRetriever) Search(ctx context.Context, query string, topK int) ([]domain.Candidate, error) {
	snap := r.current.Load()
	if snap == nil || snap.index.Len() == 0 {
		return []domain.Candidate{}, nil
	}
	if topK <= 0 {
		topK = r.topK
	}

	neighbors, err := r.neighbors(ctx, snap, query, topK)
	if err != nil {
		return nil, err
	}
	return RankCandidates(neighbors, snap.articles, r.minRelevance), nil
}

// Retrieve finds articles for the ticket, asks the judge about the best of
// them and fuses both signals. topK <= 0 uses the configured default.
//
// An empty corpus or a search with no hits yields the fallback result.
// A failed judgment yields an error and no result.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, ticket domain.TicketAnalysis, topK int) (*domain.KnowledgeRetrievalResult, error) {
	query := BuildQuery(ticket)

	candidates, err := r.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		r.logger.Info("no relevant articles found", zap.String("query", query))
		return domain.FallbackResult(), nil
	}

	if len(candidates) > r.judgeCandidates {
		candidates = candidates[:r.judgeCandidates]
	}

	judgment, err := r.judge.Judge(ctx, ticket, candidates)
	if err != nil {
		r.logger.Warn("knowledge judgment failed",
			zap.String("query", query),
			zap.Int("candidates", len(candidates)),
			zap.Error(err))
		return nil, fmt.Errorf("retrieve knowledge: %w", err)
	}

	result, mode := AssembleResult(candidates, judgment)
	r.logger.Debug("knowledge retrieved",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("judged", len(judgment.RelevantArticles)),
		zap.Int("results", len(result.RelevantArticles)),
		zap.String("fusion", string(mode)))

	return result, nil
}

func (r *KnowledgeRetriever) neighbors(ctx context.Context, snap *snapshot, query string, topK int) ([]domain.Neighbor, error) {
	if r.cache != nil {
		if hit, ok := r.cache.Get(query, topK, snap.generation); ok {
			return hit, nil
		}
	}

	vec, err := embedding.EmbedText(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := snap.index.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if r.cache != nil {
		r.cache.Put(query, topK, snap.generation, neighbors)
	}
	return neighbors, nil
}
