package casting

import "context"

// Store persists actors, movies and cast links.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ordering: list results are ordered by id.
// - Errors: unknown ids return ErrNotFound; rejected writes return
//   ErrUnprocessable. Deleting an actor or movie removes its cast rows.
type Store interface {
	// ListActors returns one page of actors with their movies, and the total
	// number of actors.
	ListActors(ctx context.Context, page Page) ([]Actor, int, error)
	GetActor(ctx context.Context, id int64) (Actor, error)
	CreateActor(ctx context.Context, in NewActor) (int64, error)
	UpdateActor(ctx context.Context, id int64, patch ActorPatch) (Actor, error)
	DeleteActor(ctx context.Context, id int64) error

	// ListMovies returns one page of movies with their cast, and the total
	// number of movies.
	ListMovies(ctx context.Context, page Page) ([]Movie, int, error)
	GetMovie(ctx context.Context, id int64) (Movie, error)
	CreateMovie(ctx context.Context, in NewMovie) (int64, error)
	UpdateMovie(ctx context.Context, id int64, patch MoviePatch) (Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close()
}
