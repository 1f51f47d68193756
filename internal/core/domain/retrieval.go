package domain

// Chunk is the unit of retrieval. Created once at ingestion, immutable after
// that, and indexed under the same ID by both the semantic and the keyword
// index.
type Chunk struct {
	ID         string    `json:"id"`
	DocID      string    `json:"doc_id"`
	PageNum    int       `json:"page_num"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	SourceURI  string    `json:"source_uri"`
}

// SearchHit is a per-query view of a chunk with whatever scores the
// producing stage attached. Never persisted.
type SearchHit struct {
	ID          string  `json:"id"`
	DocID       string  `json:"doc_id"`
	PageNum     int     `json:"page_num"`
	ChunkIndex  int     `json:"chunk_index"`
	Text        string  `json:"text"`
	SourceURI   string  `json:"source_uri"`
	Score       float64 `json:"score,omitempty"`
	BM25Score   float64 `json:"bm25_score,omitempty"`
	RerankScore float64 `json:"rerank_score,omitempty"`
}

type QuestionType string

const (
	QuestionText  QuestionType = "TEXT"
	QuestionTable QuestionType = "TABLE"
)

// SubQuestion is produced by query decomposition and consumed within the
// same request.
type SubQuestion struct {
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
}

type VerificationStatus string

const (
	VerdictSupports     VerificationStatus = "Supports"
	VerdictRefutes      VerificationStatus = "Refutes"
	VerdictNotMentioned VerificationStatus = "Not Mentioned"
)

type VerificationResult struct {
	Claim      string             `json:"claim"`
	Status     VerificationStatus `json:"status"`
	ChunkIndex int                `json:"chunk_index"`
	Confidence float64            `json:"confidence"`
}

// Table is a structured table captured at ingestion for the TABLE
// reasoning path.
type Table struct {
	DocID      string
	TableIndex int
	Sheet      string
	Columns    []string
	Rows       [][]string
}

type Answer struct {
	Text         string               `json:"text"`
	Sources      []string             `json:"sources"`
	Verification []VerificationResult `json:"verification"`
}
