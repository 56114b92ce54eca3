package domain

// Article is a knowledge base entry. Articles are immutable once loaded.
type Article struct {
	ID       string   `json:"article_id" yaml:"article_id"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Category string   `json:"category" yaml:"category"`
	Tags     []string `json:"tags" yaml:"tags"`
}

// CorpusText is the text embedded for an article: title and content joined by a single space.
func (a Article) CorpusText() string {
	return a.Title + " " + a.Content
}

// TicketAnalysis is the structured summary of a support ticket produced upstream.
type TicketAnalysis struct {
	KeyIssues      []string `json:"key_issues" yaml:"key_issues"`
	CustomerIntent string   `json:"customer_intent" yaml:"customer_intent"`
	ErrorCodes     []string `json:"error_codes" yaml:"error_codes"`
	Category       string   `json:"category" yaml:"category"`
}

// Neighbor is a single k-NN hit: the index position and its squared L2 distance.
type Neighbor struct {
	Position int
	Distance float64
}

// Candidate is a neighbor resolved to its article.
type Candidate struct {
	Article   Article
	Distance  float64
	Relevance float64
}

// ArticleJudgment is the LLM's qualitative take on one candidate.
type ArticleJudgment struct {
	ArticleID     string   `json:"article_id,omitempty"`
	Summary       string   `json:"summary"`
	SolutionSteps []string `json:"solution_steps"`
}

// Judgment is the structured reply of the judgment call.
type Judgment struct {
	RelevantArticles     []ArticleJudgment `json:"relevant_articles"`
	RecommendedSolutions []string          `json:"recommended_solutions"`
	RelatedIssues        []string          `json:"related_issues"`
}

type RetrievalResult struct {
	ArticleID      string   `json:"article_id"`
	Title          string   `json:"title"`
	RelevanceScore float64  `json:"relevance_score"`
	Summary        string   `json:"summary"`
	SolutionSteps  []string `json:"solution_steps"`
}

// KnowledgeRetrievalResult is the terminal artifact of a retrieval.
type KnowledgeRetrievalResult struct {
	RelevantArticles     []RetrievalResult `json:"relevant_articles"`
	RecommendedSolutions []string          `json:"recommended_solutions"`
	RelatedIssues        []string          `json:"related_issues"`
}

// NoArticlesRecommendation is returned when the search finds nothing.
const NoArticlesRecommendation = "No relevant articles found. Consider escalating to human support."

// FallbackResult is the result for an empty corpus or a search miss.
func FallbackResult() *KnowledgeRetrievalResult {
	return &KnowledgeRetrievalResult{
		RelevantArticles:     []RetrievalResult{},
		RecommendedSolutions: []string{NoArticlesRecommendation},
		RelatedIssues:        []string{},
	}
}

// CorpusInfo describes a persisted corpus.
type CorpusInfo struct {
	Articles       int    `json:"articles"`
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	SchemaVersion  int    `json:"schema_version"`
}
