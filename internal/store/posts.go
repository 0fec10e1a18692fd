package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chapel/internal/models"
)

const postColumns = "id, title, content, category, date_posted, image"

// Newest first; equal timestamps fall back to insertion order.
const postOrder = " ORDER BY date_posted DESC, id DESC"

// Fixed width so that lexical order of the stored text is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// CreatePost validates in, stamps the creation time and inserts the post
// in a single transaction.
func (s *Store) CreatePost(ctx context.Context, in models.NewPost) (post *models.Post, err error) {
	normalized, category, err := ValidateNewPost(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Unavailable("begin create", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	datePosted := s.now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO posts (title, content, category, date_posted, image)
		VALUES (?, ?, ?, ?, ?)
	`,
		normalized.Title,
		normalized.Content,
		string(category),
		formatTime(datePosted),
		nullIfEmptyBytes(normalized.Image),
	)
	if err != nil {
		return nil, Unavailable("insert post", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, Unavailable("insert post", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, Unavailable("commit post", err)
	}

	return &models.Post{
		ID:         id,
		Title:      normalized.Title,
		Content:    normalized.Content,
		Category:   category,
		DatePosted: parsedPrecision(datePosted),
		Image:      normalized.Image,
	}, nil
}

// GetPost returns a post by id, or nil when no post matches.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if err != nil {
		return nil, Unavailable("get post", err)
	}
	return post, nil
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.queryPosts(ctx, "list posts", "SELECT "+postColumns+" FROM posts"+postOrder)
}

// ListRecentPosts returns at most limit posts, newest first. A
// non-positive limit returns every post.
func (s *Store) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		return s.ListPosts(ctx)
	}
	return s.queryPosts(ctx, "list recent posts", "SELECT "+postColumns+" FROM posts"+postOrder+" LIMIT ?", limit)
}

// ListPostsByCategory returns posts whose category equals category exactly.
func (s *Store) ListPostsByCategory(ctx context.Context, category models.Category) ([]models.Post, error) {
	return s.queryPosts(ctx, "list posts by category",
		"SELECT "+postColumns+" FROM posts WHERE category = ?"+postOrder, string(category))
}

// SearchPosts returns posts whose title or content contains query,
// ignoring case, in the same order as ListPosts. An empty query returns
// every post. The query is matched literally, so %, _ and whitespace carry
// no special meaning.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	if query == "" {
		return s.ListPosts(ctx)
	}
	q := foldCase(query)
	return s.queryPosts(ctx, "search posts", fmt.Sprintf(
		"SELECT %s FROM posts WHERE instr(%s(title), ?) > 0 OR instr(%s(content), ?) > 0%s",
		postColumns, casefoldFunc, casefoldFunc, postOrder,
	), q, q)
}

// CountPosts returns the number of stored posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		return 0, Unavailable("count posts", err)
	}
	return count, nil
}

// StoreInfo reports the schema version and post totals.
func (s *Store) StoreInfo(ctx context.Context) (StoreInfo, error) {
	info := StoreInfo{Backend: BackendSQLite, CategoryCounts: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&info.SchemaVersion); err != nil {
		return info, Unavailable("schema version", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM posts GROUP BY category ORDER BY category")
	if err != nil {
		return info, Unavailable("count by category", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return info, Unavailable("count by category", err)
		}
		info.CategoryCounts[category] = count
		info.TotalPosts += count
	}
	if err := rows.Err(); err != nil {
		return info, Unavailable("count by category", err)
	}
	return info, nil
}

func (s *Store) queryPosts(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Unavailable(op, err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, Unavailable(op, err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable(op, err)
	}
	return posts, nil
}

func scanPost(scanner interface {
	Scan(dest ...any) error
}) (*models.Post, error) {
	var post models.Post
	var category string
	var datePosted any
	var image []byte

	if err := scanner.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&category,
		&datePosted,
		&image,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := parseStoredTime(datePosted)
	if err != nil {
		return nil, err
	}
	post.Category = models.Category(category)
	post.DatePosted = parsed
	if len(image) > 0 {
		post.Image = image
	}
	return &post, nil
}

func nullIfEmptyBytes(value []byte) any {
	if len(value) == 0 {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parsedPrecision returns t as it will read back from storage.
func parsedPrecision(t time.Time) time.Time {
	parsed, err := time.Parse(timeLayout, formatTime(t))
	if err != nil {
		return t.UTC()
	}
	return parsed
}

// The driver hands back TIMESTAMP columns either as time.Time or as the
// stored text depending on whether it recognizes the layout.
func parseStoredTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	case nil:
		return time.Time{}, fmt.Errorf("date_posted is null")
	default:
		return time.Time{}, fmt.Errorf("unsupported date_posted type %T", value)
	}
}

func parseTimeText(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date_posted %q", value)
}
