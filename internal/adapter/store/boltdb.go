package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"supportkb/internal/domain"
)

var (
	bucketArticles = []byte("articles")
	bucketVectors  = []byte("vectors")
	bucketMeta     = []byte("meta")

	keyEmbeddingModel = []byte("embedding_model")
	keyDimension      = []byte("dimension")
)

// ErrNotFound is returned when an article id is not stored.
var ErrNotFound = errors.New("not found")

// BoltStore persists the article corpus and its embeddings in a single bbolt file.
// Articles and vectors are keyed by their corpus position so that a load
// returns them in the order they were saved.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketArticles, bucketVectors, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

// SaveCorpus replaces the stored corpus in one transaction.
func (s *BoltStore) SaveCorpus(articles []domain.Article, vectors [][]float32, model string) error {
	if len(vectors) != len(articles) {
		return fmt.Errorf("save corpus: %d vectors for %d articles: %w", len(vectors), len(articles), domain.ErrEmbeddingCount)
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("save corpus: vector %d has dimension %d, expected %d: %w", i, len(v), dim, domain.ErrDimensionMismatch)
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketArticles, bucketVectors} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		articlesBucket := tx.Bucket(bucketArticles)
		vectorsBucket := tx.Bucket(bucketVectors)
		for i, a := range articles {
			data, err := json.Marshal(a)
			if err != nil {
				return err
			}
			key := positionKey(i)
			if err := articlesBucket.Put(key, data); err != nil {
				return err
			}
			if err := vectorsBucket.Put(key, encodeVector(vectors[i])); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyEmbeddingModel, []byte(model)); err != nil {
			return err
		}
		dimData, err := json.Marshal(dim)
		if err != nil {
			return err
		}
		return meta.Put(keyDimension, dimData)
	})
}

// LoadCorpus returns every stored article with its vector, in saved order.
func (s *BoltStore) LoadCorpus() ([]domain.Article, [][]float32, error) {
	var articles []domain.Article
	var vectors [][]float32

	err := s.db.View(func(tx *bbolt.Tx) error {
		vectorsBucket := tx.Bucket(bucketVectors)
		return tx.Bucket(bucketArticles).ForEach(func(k, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode article at %d: %w", binary.BigEndian.Uint64(k), err)
			}

			raw := vectorsBucket.Get(k)
			if raw == nil {
				return fmt.Errorf("article %s has no stored vector: %w", a.ID, domain.ErrEmbeddingCount)
			}
			vec, err := decodeVector(raw)
			if err != nil {
				return fmt.Errorf("decode vector for %s: %w", a.ID, err)
			}

			articles = append(articles, a)
			vectors = append(vectors, vec)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return articles, vectors, nil
}

// ListArticles returns the stored articles without their vectors.
func (s *BoltStore) ListArticles() ([]domain.Article, error) {
	var articles []domain.Article
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketArticles).ForEach(func(_, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			articles = append(articles, a)
			return nil
		})
	})
	return articles, err
}

// GetArticle looks an article up by id.
func (s *BoltStore) GetArticle(id string) (domain.Article, error) {
	var found domain.Article
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketArticles).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			if a.ID == id {
				found, ok = a, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return domain.Article{}, err
	}
	if !ok {
		return domain.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return found, nil
}

// Info summarizes the stored corpus.
func (s *BoltStore) Info() (domain.CorpusInfo, error) {
	var info domain.CorpusInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		info.Articles = tx.Bucket(bucketArticles).Stats().KeyN

		meta := tx.Bucket(bucketMeta)
		info.EmbeddingModel = string(meta.Get(keyEmbeddingModel))
		if data := meta.Get(keyDimension); data != nil {
			if err := json.Unmarshal(data, &info.Dimension); err != nil {
				return err
			}
		}
		if data := meta.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.SchemaVersion); err != nil {
				return err
			}
		}
		return nil
	})
	return info, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
