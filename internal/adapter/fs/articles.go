package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"supportkb/internal/domain"
)

// ReadArticles reads and parses one article file.
func ReadArticles(path string) ([]domain.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	articles, err := ParseArticles(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return articles, nil
}

// ParseArticles decodes the articles in data, choosing the format by the
// extension of path.
//
//   - .json: an array of articles, a single article, or {"articles": [...]}
//   - .yaml, .yml: a list of articles or a single article
//   - .md: one article, with optional YAML front matter between "---" lines
func ParseArticles(path string, data []byte) ([]domain.Article, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".md", ".markdown":
		a, err := parseMarkdown(path, data)
		if err != nil {
			return nil, err
		}
		return []domain.Article{a}, nil
	default:
		return nil, fmt.Errorf("unsupported article format %q", filepath.Ext(path))
	}
}

func parseJSON(data []byte) ([]domain.Article, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var articles []domain.Article
		if err := json.Unmarshal(trimmed, &articles); err != nil {
			return nil, err
		}
		return articles, nil
	}

	var wrapped struct {
		Articles *[]domain.Article `json:"articles"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Articles != nil {
		return *wrapped.Articles, nil
	}

	var a domain.Article
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return nil, err
	}
	return []domain.Article{a}, nil
}

func parseYAML(data []byte) ([]domain.Article, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var articles []domain.Article
		if err := root.Decode(&articles); err != nil {
			return nil, err
		}
		return articles, nil
	}

	var a domain.Article
	if err := root.Decode(&a); err != nil {
		return nil, err
	}
	return []domain.Article{a}, nil
}

// parseMarkdown reads front matter for metadata and uses the body as content.
// Without a title in front matter, the first "# " heading is used, then the
// file name.
func parseMarkdown(path string, data []byte) (domain.Article, error) {
	var a domain.Article
	body := strings.ReplaceAll(string(data), "\r\n", "\n")

	if strings.HasPrefix(body, "---\n") {
		rest := body[len("---\n"):]
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return a, fmt.Errorf("unterminated front matter")
		}
		if err := yaml.Unmarshal([]byte(rest[:end]), &a); err != nil {
			return a, fmt.Errorf("front matter: %w", err)
		}
		body = rest[end+len("\n---"):]
		body = strings.TrimPrefix(body, "\n")
	}

	body = strings.TrimSpace(body)
	if a.Title == "" {
		if first, remainder, ok := strings.Cut(body, "\n"); strings.HasPrefix(first, "# ") {
			a.Title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
			if ok {
				body = strings.TrimSpace(remainder)
			} else {
				body = ""
			}
		}
	}
	if a.Title == "" {
		base := filepath.Base(path)
		a.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if a.Content == "" {
		a.Content = body
	}

	return a, nil
}
