package types

import "time"

// Event types published on the article events topic
const (
	EventArticleSubmitted = "article.submitted"
	EventArticleMinted    = "article.minted"
)

// ArticleEvent is published whenever an article is created or minted
type ArticleEvent struct {
	Type       string    `json:"type"`
	ArticleID  string    `json:"article_id"`
	URL        string    `json:"url"`
	DagAddress string    `json:"dag_address"`
	NFTTokenID string    `json:"nft_token_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SubmissionMessage is an asynchronous submit request consumed from Kafka
type SubmissionMessage struct {
	URL        string `json:"url"`
	DagAddress string `json:"dag_address"`
}
