package models

import (
	"time"
)

// Sentiment is the polarity label attached to a post when it is created.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Post represents a microblog entry.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Sentiment Sentiment `gorm:"type:varchar(16)" json:"sentiment"`
	CreatedAt time.Time `gorm:"index:idx_posts_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// PostResponse is the public representation of a post.
type PostResponse struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Sentiment Sentiment `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
	Owner     PostOwner `json:"owner"`
}

// ToResponse converts a post with its preloaded owner.
func (p *Post) ToResponse() PostResponse {
	return PostResponse{
		ID:        p.ID,
		Content:   p.Content,
		Sentiment: p.Sentiment,
		CreatedAt: p.CreatedAt,
		Owner: PostOwner{
			ID:       p.User.ID,
			Username: p.User.Username,
		},
	}
}

// PostResponses converts a slice, never returning nil so the JSON is [] rather than null.
func PostResponses(posts []*Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ToResponse())
	}
	return out
}
