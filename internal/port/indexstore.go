package port

import "supportkb/internal/domain"

// CorpusStore persists a corpus together with its embeddings.
type CorpusStore interface {
	// SaveCorpus replaces the stored corpus. vectors[i] belongs to articles[i].
	SaveCorpus(articles []domain.Article, vectors [][]float32, model string) error

	// LoadCorpus returns the stored articles and vectors in saved order.
	LoadCorpus() ([]domain.Article, [][]float32, error)

	Info() (domain.CorpusInfo, error)

	// NeedsRebuild reports whether stored vectors were produced by an
	// embedder other than the one identified by fingerprint.
	NeedsRebuild(fingerprint string) (bool, string, error)

	// Migrate updates the schema and records fingerprint.
	Migrate(fingerprint string) error

	Close() error
}
