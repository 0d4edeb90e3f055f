package db

import "time"

// Author represents a row in the authors table.
type Author struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Bio      *string   `json:"bio,omitempty"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// BlogPost represents a row in the blog_posts table.
type BlogPost struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	AuthorID    string     `json:"authorId"`
	CategoryID  *string    `json:"categoryId,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Created     time.Time  `json:"created"`
	Modified    time.Time  `json:"modified"`
}

// Category represents a row in the categories table.
type Category struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// Tag represents a row in the tags table.
type Tag struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// DispatchRecord represents a row in the dispatch_log audit table.
type DispatchRecord struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	Action     string    `json:"action"`
	Operation  string    `json:"operation"`
	Entity     string    `json:"entity"`
	Verb       string    `json:"verb"`
	Kind       string    `json:"kind"`
	Success    bool      `json:"success"`
	ErrorCode  *string   `json:"errorCode,omitempty"`
	DurationMS int64     `json:"durationMs"`
	Created    time.Time `json:"created"`
}
