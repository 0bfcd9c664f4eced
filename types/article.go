package types

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article is a crawled news article as stored in the news_articles collection
type Article struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title         string             `bson:"title" json:"title"`
	Content       string             `bson:"content" json:"content"`
	Authors       string             `bson:"authors" json:"authors"`
	PublishedDate time.Time          `bson:"published_date" json:"published_date"`
	URL           string             `bson:"url" json:"url"`
	Source        string             `bson:"source" json:"source"`
	TopImage      *string            `bson:"top_image" json:"top_image"`
	Videos        []string           `bson:"videos" json:"videos"`
	Keywords      []string           `bson:"keywords" json:"keywords"`
	Summary       *string            `bson:"summary" json:"summary"`
	DagAddress    string             `bson:"dag_address" json:"dag_address"`

	// Minting metadata. Set together, once, after a successful metagraph mint.
	MintedAt   *time.Time `bson:"minted_at" json:"minted_at"`
	MintedBy   *string    `bson:"minted_by" json:"minted_by"`
	NFTTokenID *string    `bson:"nft_token_id" json:"nft_token_id"`
}

// IsMinted reports whether the article already carries a minting address
func (a *Article) IsMinted() bool {
	return a.MintedBy != nil && *a.MintedBy != ""
}

// Submission is the body of a submit request. Empty fields are left to the
// service: a blank url is not crawlable and a blank dag_address is rejected.
type Submission struct {
	URL        string `json:"url"`
	DagAddress string `json:"dag_address"`
}

// ArticleResponse is the externally visible projection of an Article
type ArticleResponse struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Authors       string     `json:"authors"`
	PublishedDate time.Time  `json:"published_date"`
	URL           string     `json:"url"`
	Source        string     `json:"source"`
	TopImage      *string    `json:"top_image"`
	Videos        []string   `json:"videos"`
	Keywords      []string   `json:"keywords"`
	Summary       *string    `json:"summary"`
	DagAddress    string     `json:"dag_address"`
	MintedAt      *time.Time `json:"minted_at"`
	MintedBy      *string    `json:"minted_by"`
	NFTTokenID    *string    `json:"nft_token_id"`
}

// ArticlePage is a paginated listing of articles
type ArticlePage struct {
	Items []ArticleResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int64             `json:"page"`
	Pages int64             `json:"pages"`
}

// ToResponse maps a stored article to its response projection
func ToResponse(a *Article) ArticleResponse {
	videos := a.Videos
	if videos == nil {
		videos = []string{}
	}
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	return ArticleResponse{
		ID:            a.ID.Hex(),
		Title:         a.Title,
		Content:       a.Content,
		Authors:       a.Authors,
		PublishedDate: a.PublishedDate,
		URL:           a.URL,
		Source:        a.Source,
		TopImage:      a.TopImage,
		Videos:        videos,
		Keywords:      keywords,
		Summary:       a.Summary,
		DagAddress:    a.DagAddress,
		MintedAt:      a.MintedAt,
		MintedBy:      a.MintedBy,
		NFTTokenID:    a.NFTTokenID,
	}
}

// ToResponses maps a slice of stored articles, never returning nil
func ToResponses(articles []*Article) []ArticleResponse {
	out := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, ToResponse(a))
	}
	return out
}

// NewPage builds page metadata: page = floor(skip/limit)+1, pages = ceil(total/limit)
func NewPage(articles []*Article, total, skip, limit int64) ArticlePage {
	page := ArticlePage{
		Items: ToResponses(articles),
		Total: total,
		Page:  1,
	}
	if limit <= 0 {
		return page
	}

	page.Page = skip/limit + 1
	page.Pages = int64(math.Ceil(float64(total) / float64(limit)))
	return page
}

// ExtractSource returns the host component of a URL, the way articles record their source
func ExtractSource(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// GenerateID creates a short, stable ID by hashing the provided string input
func GenerateID(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
