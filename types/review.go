package types

import "time"

const (
	MinScore = 1
	MaxScore = 10
)

// Review is a user's scored opinion of a title.
// At most one review exists per (title, author) pair.
type Review struct {
	ID       int64 `json:"id" db:"id"`
	TitleID  int64 `json:"-" db:"title_id"`
	AuthorID int64 `json:"-" db:"author_id"`

	// Author is the username of the review author.
	Author string `json:"author" db:"author"`

	Text  string `json:"text" db:"text"`
	Score int    `json:"score" db:"score"`

	// PubDate is assigned by the server on creation.
	PubDate time.Time `json:"pub_date" db:"pub_date"`
}

// Comment is a user's reply to a review.
type Comment struct {
	ID       int64     `json:"id" db:"id"`
	ReviewID int64     `json:"-" db:"review_id"`
	AuthorID int64     `json:"-" db:"author_id"`
	Author   string    `json:"author" db:"author"`
	Text     string    `json:"text" db:"text"`
	PubDate  time.Time `json:"pub_date" db:"pub_date"`
}
