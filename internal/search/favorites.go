package search

import "context"

// FavoritesProvider is the read-only seam to the session/saved-lists
// collaborator. The pipeline only needs the caller's favorited ids to
// annotate matching results.
type FavoritesProvider interface {
	FavoriteIDs(ctx context.Context, sessionToken string) ([]string, error)
}

type noopFavorites struct{}

// NoopFavorites serves deployments without a session collaborator.
func NoopFavorites() FavoritesProvider { return noopFavorites{} }

func (noopFavorites) FavoriteIDs(context.Context, string) ([]string, error) {
	return nil, nil
}
