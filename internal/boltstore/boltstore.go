// Package boltstore keeps posts in a single bbolt file. It satisfies the
// same contract as the SQLite store and is selected with
// storage_backend = "bolt".
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"chapel/internal/models"
	"chapel/internal/store"
)

const (
	Backend = "bolt"

	// SchemaVersion is bumped when the stored record layout changes.
	SchemaVersion = 1

	bucketPosts = "posts"
	bucketMeta  = "meta"
	keySchema   = "schema_version"

	lockTimeout = 5 * time.Second
)

var _ store.PostStore = (*Store)(nil)

// Store is a bbolt-backed post store.
type Store struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

// record is the stored form of a post.
type record struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	DatePosted time.Time `json:"date_posted"`
	Image      []byte    `json:"image,omitempty"`
}

// Open opens or creates the bolt file at path. Another process holding the
// file lock makes Open fail with store.ErrStorageUnavailable after a short
// wait.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, store.Unavailable("open bolt", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketPosts)); err != nil {
			return fmt.Errorf("create posts bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if meta.Get([]byte(keySchema)) == nil {
			return meta.Put([]byte(keySchema), itob(SchemaVersion))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, store.Unavailable("init bolt", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file the store was opened with.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error) {
	normalized, category, err := store.ValidateNewPost(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := record{
		Title:      normalized.Title,
		Content:    normalized.Content,
		Category:   string(category),
		DatePosted: s.now().UTC(),
		Image:      normalized.Image,
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := postsBucket(tx)
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.ID = int64(seq)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		return nil, store.Unavailable("create post", err)
	}

	post := rec.toPost()
	return &post, nil
}

// GetPost returns the post with id, or nil when there is none.
func (s *Store) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, nil
	}

	var post *models.Post
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := postsBucket(tx)
		if err != nil {
			return err
		}
		data := b.Get(itob(uint64(id)))
		if data == nil {
			return nil
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode post %d: %w", id, err)
		}
		p := rec.toPost()
		post = &p
		return nil
	})
	if err != nil {
		return nil, store.Unavailable("get post", err)
	}
	return post, nil
}

func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.collect(ctx, "list posts", func(models.Post) bool { return true })
}

func (s *Store) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *Store) ListPostsByCategory(ctx context.Context, category models.Category) ([]models.Post, error) {
	return s.collect(ctx, "list posts by category", func(p models.Post) bool {
		return p.Category == category
	})
}

func (s *Store) SearchPosts(ctx context.Context, query string) ([]models.Post, error) {
	return s.collect(ctx, "search posts", func(p models.Post) bool {
		return store.MatchesQuery(p, query)
	})
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := postsBucket(tx)
		if err != nil {
			return err
		}
		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, store.Unavailable("count posts", err)
	}
	return count, nil
}

func (s *Store) StoreInfo(ctx context.Context) (store.StoreInfo, error) {
	info := store.StoreInfo{Backend: Backend, CategoryCounts: map[string]int{}}
	if err := ctx.Err(); err != nil {
		return info, err
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		if meta := tx.Bucket([]byte(bucketMeta)); meta != nil {
			if v := meta.Get([]byte(keySchema)); len(v) == 8 {
				info.SchemaVersion = int(binary.BigEndian.Uint64(v))
			}
		}
		b, err := postsBucket(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(_, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			info.CategoryCounts[rec.Category]++
			info.TotalPosts++
			return nil
		})
	})
	if err != nil {
		return info, store.Unavailable("store info", err)
	}
	return info, nil
}

// collect scans every post, keeps those matching keep and returns them
// newest first.
func (s *Store) collect(ctx context.Context, op string, keep func(models.Post) bool) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	posts := []models.Post{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		b, err := postsBucket(tx)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode post %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if post := rec.toPost(); keep(post) {
				posts = append(posts, post)
			}
			return nil
		})
	})
	if err != nil {
		return nil, store.Unavailable(op, err)
	}

	slices.SortStableFunc(posts, newestFirst)
	return posts, nil
}

func newestFirst(a, b models.Post) int {
	if c := b.DatePosted.Compare(a.DatePosted); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func postsBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	b := tx.Bucket([]byte(bucketPosts))
	if b == nil {
		return nil, errors.New("posts bucket not found")
	}
	return b, nil
}

func (r record) toPost() models.Post {
	post := models.Post{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Category:   models.Category(r.Category),
		DatePosted: r.DatePosted.UTC(),
	}
	if len(r.Image) > 0 {
		post.Image = r.Image
	}
	return post
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
