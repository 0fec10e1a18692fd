package main

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var headingRegex = regexp.MustCompile(`^#\s+(.+?)\s*#*\s*$`)

// postFile is a post written as Markdown with optional YAML front matter.
type postFile struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Image    string `yaml:"image"`
	Content  string `yaml:"-"`
}

// parsePostMarkdown splits front matter from the body. Without a title in
// the front matter, a leading "# heading" becomes the title and is removed
// from the content.
func parsePostMarkdown(input string) (postFile, error) {
	var post postFile
	content := strings.ReplaceAll(input, "\r\n", "\n")

	lines := strings.Split(content, "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return post, fmt.Errorf("front matter not closed")
		}
		frontText := strings.Join(lines[1:end], "\n")
		if err := yaml.Unmarshal([]byte(frontText), &post); err != nil {
			return post, fmt.Errorf("front matter: %w", err)
		}
		lines = lines[end+1:]
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if strings.TrimSpace(post.Title) == "" && len(lines) > 0 {
		if match := headingRegex.FindStringSubmatch(lines[0]); len(match) == 2 {
			post.Title = match[1]
			lines = lines[1:]
		}
	}

	post.Title = strings.TrimSpace(post.Title)
	post.Category = strings.TrimSpace(post.Category)
	post.Image = strings.TrimSpace(post.Image)
	post.Content = strings.TrimSpace(strings.Join(lines, "\n"))
	return post, nil
}

// renderPostMarkdown writes post in the layout parsePostMarkdown reads.
func renderPostMarkdown(post postFile, datePosted string) (string, error) {
	front := map[string]string{
		"title":    post.Title,
		"category": post.Category,
	}
	if datePosted != "" {
		front["date_posted"] = datePosted
	}
	if post.Image != "" {
		front["image"] = post.Image
	}
	data, err := yaml.Marshal(front)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	b.WriteString(post.Content)
	b.WriteString("\n")
	return b.String(), nil
}
