// Package render holds the stateless helpers used to present posts:
// inline image encoding, excerpts, Markdown bodies and slugs.
package render

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// DefaultExcerptLength is the number of characters shown on post cards.
const DefaultExcerptLength = 200

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
)

// ImageBase64 encodes image bytes for inline embedding. Empty input gives
// an empty string.
func ImageBase64(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(image)
}

// ImageMediaType sniffs the media type of image bytes.
func ImageMediaType(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return http.DetectContentType(image)
}

// ImageDataURI returns a data: URI suitable for an <img src>.
func ImageDataURI(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return "data:" + ImageMediaType(image) + ";base64," + ImageBase64(image)
}

// Excerpt returns the first n characters of content followed by "..."
// when content is longer.
func Excerpt(content string, n int) string {
	if n <= 0 {
		n = DefaultExcerptLength
	}
	if utf8.RuneCountInString(content) <= n {
		return content
	}
	runes := []rune(content)
	return strings.TrimRightFunc(string(runes[:n]), isSpace) + "..."
}

// ContentHTML renders Markdown content to HTML. Raw HTML in the source is
// omitted.
func ContentHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Slug returns the URL slug for a title.
func Slug(title string) string {
	return slug.Make(title)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
