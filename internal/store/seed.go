package store

import (
	"context"
	"fmt"
	"log/slog"

	"chapel/internal/models"
)

// ImageFetcher downloads image bytes for an example post.
type ImageFetcher func(ctx context.Context, url string) ([]byte, error)

// ExamplePost is one of the posts inserted into an empty blog.
type ExamplePost struct {
	Title    string
	Content  string
	Category models.Category
	ImageURL string
}

// ExamplePosts returns the posts a fresh blog starts with, oldest first.
func ExamplePosts() []ExamplePost {
	return []ExamplePost{
		{
			Title:    "Meditação Semanal: O Poder do Louvor",
			Content:  "Nesta semana, refletimos sobre o poder transformador do louvor em nossas vidas. O Salmo 22:3 nos diz que Deus habita nos louvores do seu povo. Quando louvamos, não apenas expressamos nossa gratidão, mas também convidamos a presença de Deus para nossas vidas...",
			Category: models.CategoryMeditation,
			ImageURL: "https://images.unsplash.com/photo-1515705576963-95cad62945b6?auto=format&fit=crop&w=1470&q=80",
		},
		{
			Title:    "Tutorial: Acordes Básicos no Violão",
			Content:  "Neste tutorial, vamos aprender os acordes básicos no violão que são essenciais para acompanhar muitos hinos e canções de louvor. Começaremos com os acordes de Dó (C), Sol (G) e Ré (D). Para formar o acorde de Dó, coloque o dedo indicador na primeira casa da segunda corda...",
			Category: models.CategoryTutorial,
			ImageURL: "https://images.unsplash.com/photo-1510915361894-db8b60106cb1?auto=format&fit=crop&w=1470&q=80",
		},
		{
			Title:    "Próximo Evento: Noite de Louvor e Adoração",
			Content:  "Estamos animados para anunciar nossa próxima Noite de Louvor e Adoração! O evento acontecerá no próximo sábado, às 19h, no salão principal da igreja. Teremos a participação especial do grupo de louvor 'Vozes para Cristo'. Venha se juntar a nós para uma noite de música, oração e comunhão...",
			Category: models.CategoryNews,
			ImageURL: "https://images.unsplash.com/photo-1470225620780-dba8ba36b745?auto=format&fit=crop&w=1470&q=80",
		},
	}
}

// SeedExamples inserts the example posts when the store holds no posts and
// returns how many were created. fetch may be nil, in which case the
// examples are stored without images. A failed image download is logged
// and the post is stored without its image.
func SeedExamples(ctx context.Context, st PostStore, fetch ImageFetcher, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count, err := st.CountPosts(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Debug("store not empty, skipping examples", "posts", count)
		return 0, nil
	}

	created := 0
	for _, example := range ExamplePosts() {
		var image []byte
		if fetch != nil && example.ImageURL != "" {
			image, err = fetch(ctx, example.ImageURL)
			if err != nil {
				logger.Warn("fetch example image", "url", example.ImageURL, "error", err)
				image = nil
			}
		}

		if _, err := st.CreatePost(ctx, models.NewPost{
			Title:    example.Title,
			Content:  example.Content,
			Category: string(example.Category),
			Image:    image,
		}); err != nil {
			return created, fmt.Errorf("seed %q: %w", example.Title, err)
		}
		created++
	}

	logger.Info("seeded example posts", "count", created)
	return created, nil
}
