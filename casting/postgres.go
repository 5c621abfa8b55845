package casting

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("casting: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("casting: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("casting: ping: %w", err)
	}

	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("casting: migrate: %w", err)
	}
	return nil
}

// ListActors implements Store.
func (s *PostgresStore) ListActors(ctx context.Context, page Page) ([]Actor, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM actors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("casting: count actors: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, gender FROM actors ORDER BY id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("casting: list actors: %w", err)
	}
	actors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Actor, error) {
		a := Actor{Movies: []MovieShort{}}
		err := row.Scan(&a.ID, &a.Name, &a.Gender)
		return a, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("casting: scan actors: %w", err)
	}

	if err := s.attachMovies(ctx, actors); err != nil {
		return nil, 0, err
	}
	return actors, total, nil
}

// GetActor implements Store.
func (s *PostgresStore) GetActor(ctx context.Context, id int64) (Actor, error) {
	a := Actor{Movies: []MovieShort{}}
	err := s.pool.QueryRow(ctx, `SELECT id, name, gender FROM actors WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Gender)
	if err != nil {
		return Actor{}, mapError(fmt.Sprintf("get actor %d", id), err)
	}

	actors := []Actor{a}
	if err := s.attachMovies(ctx, actors); err != nil {
		return Actor{}, err
	}
	return actors[0], nil
}

// CreateActor implements Store.
func (s *PostgresStore) CreateActor(ctx context.Context, in NewActor) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO actors (name, gender) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Gender).Scan(&id)
	if err != nil {
		return 0, mapError("create actor", err)
	}
	return id, nil
}

// UpdateActor implements Store.
func (s *PostgresStore) UpdateActor(ctx context.Context, id int64, patch ActorPatch) (Actor, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE actors SET name = COALESCE($2, name), gender = COALESCE($3, gender) WHERE id = $1`,
		id, patch.Name, patch.Gender)
	if err != nil {
		return Actor{}, mapError(fmt.Sprintf("update actor %d", id), err)
	}
	if tag.RowsAffected() == 0 {
		return Actor{}, fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	return s.GetActor(ctx, id)
}

// DeleteActor implements Store. Cast rows are removed by the foreign key.
func (s *PostgresStore) DeleteActor(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "actors", id)
}

// ListMovies implements Store.
func (s *PostgresStore) ListMovies(ctx context.Context, page Page) ([]Movie, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("casting: count movies: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, title, release_date FROM movies ORDER BY id LIMIT $1 OFFSET $2`,
		page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("casting: list movies: %w", err)
	}
	movies, err := pgx.CollectRows(rows, scanMovie)
	if err != nil {
		return nil, 0, fmt.Errorf("casting: scan movies: %w", err)
	}

	if err := s.attachActors(ctx, movies); err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// GetMovie implements Store.
func (s *PostgresStore) GetMovie(ctx context.Context, id int64) (Movie, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, release_date FROM movies WHERE id = $1`, id)
	if err != nil {
		return Movie{}, mapError(fmt.Sprintf("get movie %d", id), err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMovie)
	if err != nil {
		return Movie{}, mapError(fmt.Sprintf("get movie %d", id), err)
	}

	movies := []Movie{m}
	if err := s.attachActors(ctx, movies); err != nil {
		return Movie{}, err
	}
	return movies[0], nil
}

// CreateMovie implements Store. The movie and its cast rows are written in
// one transaction.
func (s *PostgresStore) CreateMovie(ctx context.Context, in NewMovie) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO movies (title, release_date) VALUES ($1, $2) RETURNING id`,
			in.Title, in.ReleaseDate.Time).Scan(&id)
		if err != nil {
			return err
		}
		return linkCast(ctx, tx, id, in.ActorIDs)
	})
	if err != nil {
		return 0, mapError("create movie", err)
	}
	return id, nil
}

// UpdateMovie implements Store.
func (s *PostgresStore) UpdateMovie(ctx context.Context, id int64, patch MoviePatch) (Movie, error) {
	var releaseDate *time.Time
	if patch.ReleaseDate != nil {
		releaseDate = &patch.ReleaseDate.Time
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE movies SET title = COALESCE($2, title), release_date = COALESCE($3, release_date) WHERE id = $1`,
			id, patch.Title, releaseDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("movie %d: %w", id, ErrNotFound)
		}
		if patch.ActorIDs == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cast_members WHERE movie_id = $1`, id); err != nil {
			return err
		}
		return linkCast(ctx, tx, id, patch.ActorIDs)
	})
	if err != nil {
		return Movie{}, mapError(fmt.Sprintf("update movie %d", id), err)
	}
	return s.GetMovie(ctx, id)
}

// DeleteMovie implements Store.
func (s *PostgresStore) DeleteMovie(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "movies", id)
}

// Ping implements Store.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements Store.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) deleteByID(ctx context.Context, table string, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return mapError(fmt.Sprintf("delete %s %d", table, id), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) attachMovies(ctx context.Context, actors []Actor) error {
	if len(actors) == 0 {
		return nil
	}
	index := make(map[int64]int, len(actors))
	ids := make([]int64, len(actors))
	for i, a := range actors {
		index[a.ID] = i
		ids[i] = a.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.actor_id, m.id, m.title, m.release_date
		FROM cast_members c JOIN movies m ON m.id = c.movie_id
		WHERE c.actor_id = ANY($1)
		ORDER BY c.id`, ids)
	if err != nil {
		return fmt.Errorf("casting: load actor movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actorID int64
		var m MovieShort
		if err := rows.Scan(&actorID, &m.ID, &m.Title, &m.ReleaseDate.Time); err != nil {
			return fmt.Errorf("casting: scan actor movies: %w", err)
		}
		i := index[actorID]
		actors[i].Movies = append(actors[i].Movies, m)
	}
	return rows.Err()
}

func (s *PostgresStore) attachActors(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	index := make(map[int64]int, len(movies))
	ids := make([]int64, len(movies))
	for i, m := range movies {
		index[m.ID] = i
		ids[i] = m.ID
	}

	rows, err := s.pool.Query(ctx, `
		SELECT c.movie_id, a.id, a.name, a.gender
		FROM cast_members c JOIN actors a ON a.id = c.actor_id
		WHERE c.movie_id = ANY($1)
		ORDER BY c.id`, ids)
	if err != nil {
		return fmt.Errorf("casting: load movie cast: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID int64
		var a ActorShort
		if err := rows.Scan(&movieID, &a.ID, &a.Name, &a.Gender); err != nil {
			return fmt.Errorf("casting: scan movie cast: %w", err)
		}
		i := index[movieID]
		movies[i].Actors = append(movies[i].Actors, a)
	}
	return rows.Err()
}

func linkCast(ctx context.Context, tx pgx.Tx, movieID int64, actorIDs []int64) error {
	for _, actorID := range actorIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cast_members (movie_id, actor_id) VALUES ($1, $2)`,
			movieID, actorID); err != nil {
			return err
		}
	}
	return nil
}

func scanMovie(row pgx.CollectableRow) (Movie, error) {
	m := Movie{Actors: []ActorShort{}}
	err := row.Scan(&m.ID, &m.Title, &m.ReleaseDate.Time)
	return m, err
}

// mapError translates pgx errors into package sentinels. Integrity and data
// errors become ErrUnprocessable.
func mapError(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("casting: %s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code[:2] {
		case "22", "23":
			return fmt.Errorf("casting: %s: %w: %s", op, ErrUnprocessable, pgErr.Message)
		}
	}
	return fmt.Errorf("casting: %s: %w", op, err)
}

var _ Store = (*PostgresStore)(nil)
