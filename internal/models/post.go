package models

import (
	"fmt"
	"strings"
	"time"
)

// TitleMaxLength is the maximum number of characters in a post title.
const TitleMaxLength = 100

// Category groups posts into the sections of the blog.
type Category string

const (
	CategoryMeditation Category = "meditation"
	CategoryTutorial   Category = "tutorial"
	CategoryNews       Category = "news"
)

var validCategories = []Category{
	CategoryMeditation,
	CategoryTutorial,
	CategoryNews,
}

// Earlier databases stored the Portuguese names.
var categoryAliases = map[string]Category{
	"meditacao": CategoryMeditation,
	"meditação": CategoryMeditation,
	"noticia":   CategoryNews,
	"notícia":   CategoryNews,
}

// Post is a single blog entry.
type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   Category  `json:"category"`
	DatePosted time.Time `json:"date_posted"`
	Image      []byte    `json:"image,omitempty"`
}

// HasImage reports whether the post carries image bytes.
func (p Post) HasImage() bool {
	return len(p.Image) > 0
}

// NewPost is the input for creating a post. The id and timestamp are
// assigned by storage.
type NewPost struct {
	Title    string
	Content  string
	Category string
	Image    []byte
}

// Categories returns the recognized categories in display order.
func Categories() []Category {
	out := make([]Category, len(validCategories))
	copy(out, validCategories)
	return out
}

func IsValidCategory(category Category) bool {
	for _, c := range validCategories {
		if c == category {
			return true
		}
	}
	return false
}

// ParseCategory normalizes raw input into a recognized category.
func ParseCategory(raw string) (Category, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("category is required")
	}
	if alias, ok := categoryAliases[value]; ok {
		return alias, nil
	}
	category := Category(value)
	if !IsValidCategory(category) {
		return "", fmt.Errorf("invalid category: %s", value)
	}
	return category, nil
}

func CategoryStrings() []string {
	out := make([]string, 0, len(validCategories))
	for _, c := range Categories() {
		out = append(out, string(c))
	}
	return out
}
