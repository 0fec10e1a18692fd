package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"chapel/internal/api"
	"chapel/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writePostList(posts []api.PostResponse) error {
	for _, post := range posts {
		if err := writePlain("%s\n", formatPostLine(post)); err != nil {
			return err
		}
	}
	return nil
}

func writePostDetail(post api.PostResponse) error {
	lines := []string{
		fmt.Sprintf("id: %d", post.ID),
		fmt.Sprintf("title: %s", post.Title),
		fmt.Sprintf("category: %s", post.Category),
		fmt.Sprintf("date_posted: %s", formatTime(post.DatePosted)),
		fmt.Sprintf("has_image: %t", post.HasImage),
	}
	if len(post.Image) > 0 {
		lines = append(lines, fmt.Sprintf("image_bytes: %d", len(post.Image)))
	}
	lines = append(lines, "", post.Content)

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeCard(card api.CardResponse) error {
	lines := []string{
		fmt.Sprintf("%s [%s] %s", card.Title, card.Category, formatTime(card.DatePosted)),
		"",
		card.Excerpt,
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatPostLine(post api.PostResponse) string {
	marker := " "
	if post.HasImage {
		marker = "*"
	}
	return fmt.Sprintf("%s %d [%s] %s - %s", marker, post.ID, post.Category, formatTime(post.DatePosted), post.Title)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
