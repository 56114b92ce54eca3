package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportkb/internal/adapter/fs"
	"supportkb/internal/adapter/store"
	"supportkb/internal/domain"
	"supportkb/internal/port"
)

// ProgressFunc reports how many of total articles have been embedded.
type ProgressFunc func(done, total int)

// ImportUseCase reads article files, embeds them and stores the corpus.
type ImportUseCase struct {
	store     port.CorpusStore
	walker    port.FileWalker
	embedder  port.Embedder
	batchSize int
	progress  ProgressFunc
	logger    *zap.Logger
}

// NewImportUseCase creates a new import use case.
func NewImportUseCase(
	store port.CorpusStore,
	walker port.FileWalker,
	embedder port.Embedder,
	batchSize int,
	logger *zap.Logger,
) *ImportUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportUseCase{
		store:     store,
		walker:    walker,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// OnProgress registers a callback invoked after every embedded batch.
func (u *ImportUseCase) OnProgress(fn ProgressFunc) {
	u.progress = fn
}

// ImportResult contains the results of an import.
type ImportResult struct {
	FilesRead        int
	ArticlesImported int
	IDsAssigned      int
	Duplicates       int
	Skipped          int
	Errors           []string
}

// Import replaces the stored corpus with the articles found under root.
// Unreadable files are reported in the result and do not abort the import.
func (u *ImportUseCase) Import(ctx context.Context, root string) (*ImportResult, error) {
	result := &ImportResult{}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	var parsed []domain.Article
	for _, file := range files {
		articles, err := fs.ReadArticles(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.FilesRead++
		parsed = append(parsed, articles...)
	}

	articles := u.normalize(parsed, result)

	vectors, err := u.embedAll(ctx, articles)
	if err != nil {
		return nil, err
	}

	if err := u.store.SaveCorpus(articles, vectors, u.embedder.ModelName()); err != nil {
		return nil, fmt.Errorf("failed to save corpus: %w", err)
	}
	if err := u.store.Migrate(Fingerprint(u.embedder)); err != nil {
		return nil, fmt.Errorf("failed to record schema: %w", err)
	}

	result.ArticlesImported = len(articles)
	u.logger.Info("corpus imported",
		zap.Int("files", result.FilesRead),
		zap.Int("articles", result.ArticlesImported),
		zap.Int("ids_assigned", result.IDsAssigned),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// normalize assigns ids to articles without one and drops empty articles and
// repeated ids, keeping the first occurrence.
func (u *ImportUseCase) normalize(parsed []domain.Article, result *ImportResult) []domain.Article {
	articles := make([]domain.Article, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))

	for _, a := range parsed {
		a.ID = strings.TrimSpace(a.ID)
		if strings.TrimSpace(a.Title) == "" && strings.TrimSpace(a.Content) == "" {
			result.Skipped++
			continue
		}
		if a.ID == "" {
			a.ID = NewArticleID()
			result.IDsAssigned++
		}
		if _, dup := seen[a.ID]; dup {
			result.Duplicates++
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate article id %s skipped", a.ID))
			continue
		}
		seen[a.ID] = struct{}{}
		articles = append(articles, a)
	}

	return articles
}

func (u *ImportUseCase) embedAll(ctx context.Context, articles []domain.Article) ([][]float32, error) {
	vectors := make([][]float32, 0, len(articles))
	for i := 0; i < len(articles); i += u.batchSize {
		end := min(i+u.batchSize, len(articles))

		texts := make([]string, 0, end-i)
		for _, a := range articles[i:end] {
			texts = append(texts, a.CorpusText())
		}

		batch, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed articles %d-%d: %w", i, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedded %d of %d articles: %w", len(batch), len(texts), domain.ErrEmbeddingCount)
		}
		if err := checkDimension(batch, u.embedder.Dimension()); err != nil {
			return nil, fmt.Errorf("failed to embed articles %d-%d: %w", i, end-1, err)
		}
		vectors = append(vectors, batch...)

		if u.progress != nil {
			u.progress(end, len(articles))
		}
	}
	return vectors, nil
}

// checkDimension rejects vectors whose size differs from what the embedder
// reports, since the stored fingerprint is derived from the reported size.
func checkDimension(vectors [][]float32, dim int) error {
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has %d values, embedder reports %d: %w", i, len(v), dim, domain.ErrDimensionMismatch)
		}
	}
	return nil
}

// NewArticleID returns an id in the knowledge base's "KB-xxxxxxxx" form.
func NewArticleID() string {
	return "KB-" + uuid.NewString()[:8]
}

// Fingerprint identifies the vector space an embedder produces.
func Fingerprint(e port.Embedder) string {
	return store.EmbeddingFingerprint(e.ModelName(), e.Dimension())
}
