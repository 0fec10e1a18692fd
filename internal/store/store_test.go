package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chapel/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// steppingClock returns a clock advancing one minute per call.
func steppingClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func mustCreate(t *testing.T, st PostStore, title, content string, category models.Category) *models.Post {
	t.Helper()
	post, err := st.CreatePost(context.Background(), models.NewPost{Title: title, Content: content, Category: string(category)})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return post
}

func postIDs(posts []models.Post) []int64 {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateAndGetPost(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	created, err := st.CreatePost(ctx, models.NewPost{
		Title:    "  Meditação Semanal  ",
		Content:  "O Salmo 22:3 nos diz...",
		Category: "meditation",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", created.ID)
	}
	if created.Title != "Meditação Semanal" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.DatePosted.IsZero() || created.DatePosted.Location() != time.UTC {
		t.Fatalf("expected UTC date_posted, got %v", created.DatePosted)
	}

	got, err := st.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected post, got nil")
	}
	if got.Title != created.Title || got.Content != created.Content || got.Category != models.CategoryMeditation {
		t.Fatalf("round trip mismatch: created=%+v got=%+v", created, got)
	}
	if !got.DatePosted.Equal(created.DatePosted) {
		t.Fatalf("date_posted mismatch: created=%v got=%v", created.DatePosted, got.DatePosted)
	}
	if got.Image != nil {
		t.Fatalf("expected nil image, got %d bytes", len(got.Image))
	}
}

// Create trims the title and stores category aliases under their canonical
// name; content and image bytes are kept as given.
func TestCreatePostNormalizesTitleAndCategory(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		in           models.NewPost
		wantTitle    string
		wantCategory models.Category
	}{
		{name: "padded title", in: models.NewPost{Title: "  Padded  ", Content: "  corpo  ", Category: "news"}, wantTitle: "Padded", wantCategory: models.CategoryNews},
		{name: "portuguese alias", in: models.NewPost{Title: "Oração", Content: "  corpo  ", Category: "Meditacao"}, wantTitle: "Oração", wantCategory: models.CategoryMeditation},
		{name: "accented alias", in: models.NewPost{Title: "Aviso", Content: "  corpo  ", Category: " notícia "}, wantTitle: "Aviso", wantCategory: models.CategoryNews},
		{name: "upper case", in: models.NewPost{Title: "Aula", Content: "  corpo  ", Category: "TUTORIAL"}, wantTitle: "Aula", wantCategory: models.CategoryTutorial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := st.CreatePost(ctx, tt.in)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			got, err := st.GetPost(ctx, created.ID)
			if err != nil || got == nil {
				t.Fatalf("get: post=%v err=%v", got, err)
			}
			if got.Title != tt.wantTitle || got.Category != tt.wantCategory {
				t.Fatalf("expected %q/%s, got %q/%s", tt.wantTitle, tt.wantCategory, got.Title, got.Category)
			}
			if got.Content != tt.in.Content {
				t.Fatalf("content should be stored verbatim, got %q", got.Content)
			}
		})
	}
}

func TestCreatePostAssignsUniqueIncreasingIDs(t *testing.T) {
	st := testStore(t)
	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 5; i++ {
		post := mustCreate(t, st, "Post", "content", models.CategoryNews)
		if seen[post.ID] {
			t.Fatalf("duplicate id %d", post.ID)
		}
		if post.ID <= last {
			t.Fatalf("expected increasing ids, got %d after %d", post.ID, last)
		}
		seen[post.ID] = true
		last = post.ID
	}
}

func TestGetPostNotFound(t *testing.T) {
	st := testStore(t)

	got, err := st.GetPost(context.Background(), 4242)
	if err != nil {
		t.Fatalf("missing post should not error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestCreatePostValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    models.NewPost
		field string
	}{
		{name: "empty title", in: models.NewPost{Title: "", Content: "valid", Category: "news"}, field: "title"},
		{name: "blank title", in: models.NewPost{Title: "   ", Content: "valid", Category: "news"}, field: "title"},
		{name: "long title", in: models.NewPost{Title: strings.Repeat("a", 101), Content: "valid", Category: "news"}, field: "title"},
		{name: "empty content", in: models.NewPost{Title: "t", Content: " ", Category: "news"}, field: "content"},
		{name: "missing category", in: models.NewPost{Title: "t", Content: "c"}, field: "category"},
		{name: "unknown category", in: models.NewPost{Title: "t", Content: "c", Category: "sermon"}, field: "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreatePost(ctx, tt.in)
			if !errors.Is(err, ErrValidationRejected) {
				t.Fatalf("expected ErrValidationRejected, got %v", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
		})
	}

	count, err := st.CountPosts(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected creates must not persist, found %d posts", count)
	}
}

func TestTitleLimitCountsCharacters(t *testing.T) {
	st := testStore(t)
	title := strings.Repeat("ç", models.TitleMaxLength)
	if _, err := st.CreatePost(context.Background(), models.NewPost{Title: title, Content: "c", Category: "news"}); err != nil {
		t.Fatalf("100 multibyte characters should be accepted: %v", err)
	}
}

func TestImageRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	image := make([]byte, 4096)
	for i := range image {
		image[i] = byte(i % 256)
	}

	created, err := st.CreatePost(ctx, models.NewPost{Title: "img", Content: "c", Category: "tutorial", Image: image})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := st.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got.Image, image) {
		t.Fatalf("image bytes changed: got %d bytes", len(got.Image))
	}
}

func TestEmptyImageStoredAsNull(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	created, err := st.CreatePost(ctx, models.NewPost{Title: "t", Content: "c", Category: "news", Image: []byte{}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var isNull bool
	if err := st.db.QueryRow("SELECT image IS NULL FROM posts WHERE id = ?", created.ID).Scan(&isNull); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !isNull {
		t.Fatal("expected NULL image column")
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	st := testStore(t)
	st.now = steppingClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	med := mustCreate(t, st, "Meditação", "louvor", models.CategoryMeditation)
	tut := mustCreate(t, st, "Violão", "acordes", models.CategoryTutorial)
	news := mustCreate(t, st, "Evento", "sábado", models.CategoryNews)

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{news.ID, tut.ID, med.ID}
	if got := postIDs(posts); !equalIDs(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].DatePosted.After(posts[i-1].DatePosted) {
			t.Fatalf("posts not sorted by date_posted desc: %v", posts)
		}
	}

	tutorials, err := st.ListPostsByCategory(context.Background(), models.CategoryTutorial)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(tutorials) != 1 || tutorials[0].ID != tut.ID {
		t.Fatalf("expected only the tutorial post, got %v", postIDs(tutorials))
	}
}

func TestListPostsTiesUseInsertionOrder(t *testing.T) {
	st := testStore(t)
	fixed := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	first := mustCreate(t, st, "a", "c", models.CategoryNews)
	second := mustCreate(t, st, "b", "c", models.CategoryNews)

	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got, want := postIDs(posts), []int64{second.ID, first.ID}; !equalIDs(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestListPostsEmpty(t *testing.T) {
	st := testStore(t)
	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", posts)
	}
}

func TestListPostsByCategoryPreservesOrder(t *testing.T) {
	st := testStore(t)
	st.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	mustCreate(t, st, "n1", "c", models.CategoryNews)
	mustCreate(t, st, "m1", "c", models.CategoryMeditation)
	mustCreate(t, st, "n2", "c", models.CategoryNews)
	mustCreate(t, st, "t1", "c", models.CategoryTutorial)
	mustCreate(t, st, "n3", "c", models.CategoryNews)

	all, err := st.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var want []int64
	for _, p := range all {
		if p.Category == models.CategoryNews {
			want = append(want, p.ID)
		}
	}

	got, err := st.ListPostsByCategory(ctx, models.CategoryNews)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !equalIDs(postIDs(got), want) {
		t.Fatalf("expected %v, got %v", want, postIDs(got))
	}

	upper, err := st.ListPostsByCategory(ctx, models.Category("NEWS"))
	if err != nil {
		t.Fatalf("filter upper: %v", err)
	}
	if len(upper) != 0 {
		t.Fatalf("category filter must be case-sensitive, got %v", postIDs(upper))
	}
}

func TestSearchPosts(t *testing.T) {
	st := testStore(t)
	st.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	louvor := mustCreate(t, st, "O Poder do Louvor", "reflexão semanal", models.CategoryMeditation)
	violao := mustCreate(t, st, "Acordes no Violão", "aprenda LOUVOR no violão", models.CategoryTutorial)
	evento := mustCreate(t, st, "Noite de Adoração", "sábado às 19h, 100% gratuito", models.CategoryNews)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{name: "title and content case-insensitive", query: "louvor", want: []int64{violao.ID, louvor.ID}},
		{name: "non-ascii fold", query: "ADORAÇÃO", want: []int64{evento.ID}},
		{name: "content only", query: "semanal", want: []int64{louvor.ID}},
		{name: "percent literal", query: "100%", want: []int64{evento.ID}},
		{name: "underscore literal", query: "_", want: []int64{}},
		{name: "no match", query: "jejum", want: []int64{}},
		{name: "empty returns all", query: "", want: []int64{evento.ID, violao.ID, louvor.ID}},
		{name: "single space matched literally", query: " ", want: []int64{evento.ID, violao.ID, louvor.ID}},
		{name: "double space matched literally", query: "  ", want: []int64{}},
		{name: "surrounding space kept", query: " violão", want: []int64{violao.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.SearchPosts(ctx, tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !equalIDs(postIDs(got), tt.want) {
				t.Fatalf("search %q: expected %v, got %v", tt.query, tt.want, postIDs(got))
			}
			for _, p := range got {
				if !MatchesQuery(p, tt.query) {
					t.Fatalf("search result %d does not satisfy MatchesQuery", p.ID)
				}
			}
		})
	}
}

func TestListRecentPosts(t *testing.T) {
	st := testStore(t)
	st.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var created []*models.Post
	for i := 0; i < 7; i++ {
		created = append(created, mustCreate(t, st, "p", "c", models.CategoryNews))
	}

	recent, err := st.ListRecentPosts(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent posts, got %d", len(recent))
	}
	if recent[0].ID != created[6].ID {
		t.Fatalf("expected newest first, got %d", recent[0].ID)
	}

	all, err := st.ListRecentPosts(ctx, 0)
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected all posts for limit 0, got %d", len(all))
	}
}

func TestStoreInfo(t *testing.T) {
	st := testStore(t)
	mustCreate(t, st, "a", "c", models.CategoryNews)
	mustCreate(t, st, "b", "c", models.CategoryNews)
	mustCreate(t, st, "c", "c", models.CategoryTutorial)

	info, err := st.StoreInfo(context.Background())
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Backend != BackendSQLite {
		t.Fatalf("unexpected backend %q", info.Backend)
	}
	if info.SchemaVersion != LatestSchemaVersion() {
		t.Fatalf("expected schema version %d, got %d", LatestSchemaVersion(), info.SchemaVersion)
	}
	if info.TotalPosts != 3 || info.CategoryCounts["news"] != 2 || info.CategoryCounts["tutorial"] != 1 {
		t.Fatalf("unexpected counts: %+v", info)
	}
}

func TestClosedStoreReportsUnavailable(t *testing.T) {
	st := testStore(t)
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ctx := context.Background()

	if _, err := st.ListPosts(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("list: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := st.SearchPosts(ctx, "x"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("search: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := st.GetPost(ctx, 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("get: expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := st.CreatePost(ctx, models.NewPost{Title: "t", Content: "c", Category: "news"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("create: expected ErrStorageUnavailable, got %v", err)
	}
}

func TestMemoryStoreIsPrivateAndVolatile(t *testing.T) {
	ctx := context.Background()

	first, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	mustCreate(t, first, "t", "c", models.CategoryNews)

	second, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open second memory: %v", err)
	}
	defer second.Close()

	count, err := second.CountPosts(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("memory stores must not share data, found %d posts", count)
	}

	count, err = first.CountPosts(ctx)
	if err != nil {
		t.Fatalf("count first: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 post in first memory store, got %d", count)
	}
	first.Close()
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLegacyTimestampsParse(t *testing.T) {
	for _, raw := range []string{
		"2024-03-01 10:00:00.123456",
		"2024-03-01 10:00:00",
		"2024-03-01T10:00:00Z",
		"2024-03-01T10:00:00.000000000Z",
	} {
		got, err := parseStoredTime(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got.Year() != 2024 || got.Month() != time.March || got.Hour() != 10 {
			t.Fatalf("parse %q: unexpected %v", raw, got)
		}
	}
	if _, err := parseStoredTime("yesterday"); err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}
