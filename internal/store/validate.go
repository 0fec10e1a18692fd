package store

import (
	"strings"
	"unicode/utf8"

	"chapel/internal/models"
)

// ValidateNewPost checks the create contract shared by every backend and
// returns the normalized input. Title is trimmed, category is parsed into
// its canonical value and an empty image becomes nil.
func ValidateNewPost(in models.NewPost) (models.NewPost, models.Category, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return in, "", &ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(title) > models.TitleMaxLength {
		return in, "", &ValidationError{Field: "title", Reason: "must be at most 100 characters"}
	}
	if strings.TrimSpace(in.Content) == "" {
		return in, "", &ValidationError{Field: "content", Reason: "is required"}
	}
	category, err := models.ParseCategory(in.Category)
	if err != nil {
		if strings.TrimSpace(in.Category) == "" {
			return in, "", &ValidationError{Field: "category", Reason: "is required"}
		}
		return in, "", &ValidationError{Field: "category", Reason: "must be one of " + strings.Join(models.CategoryStrings(), ", ")}
	}

	out := models.NewPost{
		Title:    title,
		Content:  in.Content,
		Category: string(category),
	}
	if len(in.Image) > 0 {
		out.Image = in.Image
	}
	return out, category, nil
}

// MatchesQuery reports whether query occurs in the title or content,
// ignoring case. An empty query matches every post; whitespace is matched
// like any other character.
func MatchesQuery(post models.Post, query string) bool {
	if query == "" {
		return true
	}
	q := foldCase(query)
	return strings.Contains(foldCase(post.Title), q) || strings.Contains(foldCase(post.Content), q)
}

func foldCase(s string) string {
	return strings.ToLower(s)
}
