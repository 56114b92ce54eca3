package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyFingerprint   = []byte("embedding_fingerprint")
)

// SchemaInfo stores the schema version and the fingerprint of the embedder
// that produced the stored vectors.
type SchemaInfo struct {
	Version     int    `json:"version"`
	Fingerprint string `json:"fingerprint"`
}

// EmbeddingFingerprint hashes the settings that make stored vectors
// comparable with fresh query vectors.
func EmbeddingFingerprint(model string, dimension int) string {
	relevant := struct {
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
	}{
		Model:     model,
		Dimension: dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("decode schema version: %w", err)
			}
		}
		info.Fingerprint = string(b.Get(keyFingerprint))
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		return b.Put(keyFingerprint, []byte(info.Fingerprint))
	})
}

// NeedsRebuild reports whether stored vectors must be recomputed before use:
// the database was written by a newer schema, or by a different embedder.
// A database without a recorded fingerprint is trusted.
func (s *BoltStore) NeedsRebuild(fingerprint string) (bool, string, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return false, "", fmt.Errorf("failed to get schema info: %w", err)
	}

	if info.Version > CurrentSchemaVersion {
		return true, fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion), nil
	}
	if info.Fingerprint != "" && info.Fingerprint != fingerprint {
		return true, "embedding model changed", nil
	}
	return false, "", nil
}

// Migrate stamps the current schema version and the embedder fingerprint.
// Every bucket the schema needs is created when the store is opened.
func (s *BoltStore) Migrate(fingerprint string) error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}
	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", info.Version, CurrentSchemaVersion)
	}

	return s.SetSchemaInfo(&SchemaInfo{
		Version:     CurrentSchemaVersion,
		Fingerprint: fingerprint,
	})
}
