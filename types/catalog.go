package types

// Category is a named, slugged classification. A title has at most one.
type Category struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Genre is a named, slugged tag. A title may have many.
type Genre struct {
	ID   int64  `json:"-" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Title represents a creative work in the catalog.
type Title struct {
	// ID is the unique identifier of the title.
	ID int64 `json:"id" db:"id"`

	// Name is the human-readable name of the work.
	Name string `json:"name" db:"name"`

	// Year is the release year of the work.
	Year int `json:"year" db:"year"`

	// Description is an optional free-form synopsis.
	Description *string `json:"description" db:"description"`

	// Category is nil when the title has no category or its category was deleted.
	Category *Category `json:"category" db:"category"`

	// Genres lists every genre attached to the title.
	Genres []Genre `json:"genre" db:"genres"`

	// Rating is the mean review score, computed on read.
	// It is nil when the title has no reviews.
	Rating *float64 `json:"rating" db:"rating"`
}
