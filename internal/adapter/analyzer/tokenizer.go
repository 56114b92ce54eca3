package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits support text into lowercase terms with stopword removal.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLen    int
	stemmer   *PorterStemmer
}

// NewTokenizer creates a Tokenizer that drops terms shorter than minLen runes.
func NewTokenizer(minLen int) *Tokenizer {
	if minLen < 1 {
		minLen = 1
	}
	return &Tokenizer{
		stopwords: defaultStopwords(),
		minLen:    minLen,
	}
}

// WithStemming makes Tokenize reduce each term to its Porter stem.
func (t *Tokenizer) WithStemming() *Tokenizer {
	t.stemmer = NewPorterStemmer()
	return t
}

// Tokenize splits text into terms.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < t.minLen {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		if t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// Preview returns the first limit runes of text followed by "...".
// Text that already fits is returned with the same suffix so previews look uniform.
func Preview(text string, limit int) string {
	if limit <= 0 {
		return "..."
	}
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}

// splitWords splits text on anything that is not a letter, digit or underscore.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "you", "your", "we", "our", "my", "me",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "please", "i", "am",
		"who", "what", "when", "where", "why", "how", "all",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
