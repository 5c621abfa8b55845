package casting

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type castRow struct {
	id      int64
	movieID int64
	actorID int64
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	actors map[int64]ActorShort
	movies map[int64]MovieShort
	cast   []castRow
	nextID struct{ actor, movie, cast int64 }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actors: make(map[int64]ActorShort),
		movies: make(map[int64]MovieShort),
	}
}

// ListActors implements Store.
func (s *MemoryStore) ListActors(_ context.Context, page Page) ([]Actor, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedIDs(s.actors)
	out := make([]Actor, 0, page.Size)
	for _, id := range pageOf(ids, page) {
		out = append(out, s.actorLocked(id))
	}
	return out, len(ids), nil
}

// GetActor implements Store.
func (s *MemoryStore) GetActor(_ context.Context, id int64) (Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.actors[id]; !ok {
		return Actor{}, fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	return s.actorLocked(id), nil
}

// CreateActor implements Store.
func (s *MemoryStore) CreateActor(_ context.Context, in NewActor) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID.actor++
	id := s.nextID.actor
	s.actors[id] = ActorShort{ID: id, Name: in.Name, Gender: in.Gender}
	return id, nil
}

// UpdateActor implements Store.
func (s *MemoryStore) UpdateActor(_ context.Context, id int64, patch ActorPatch) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.actors[id]
	if !ok {
		return Actor{}, fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Gender != nil {
		a.Gender = *patch.Gender
	}
	s.actors[id] = a
	return s.actorLocked(id), nil
}

// DeleteActor implements Store.
func (s *MemoryStore) DeleteActor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.actors[id]; !ok {
		return fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	delete(s.actors, id)
	s.cast = filterCast(s.cast, func(c castRow) bool { return c.actorID != id })
	return nil
}

// ListMovies implements Store.
func (s *MemoryStore) ListMovies(_ context.Context, page Page) ([]Movie, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := sortedIDs(s.movies)
	out := make([]Movie, 0, page.Size)
	for _, id := range pageOf(ids, page) {
		out = append(out, s.movieLocked(id))
	}
	return out, len(ids), nil
}

// GetMovie implements Store.
func (s *MemoryStore) GetMovie(_ context.Context, id int64) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.movies[id]; !ok {
		return Movie{}, fmt.Errorf("movie %d: %w", id, ErrNotFound)
	}
	return s.movieLocked(id), nil
}

// CreateMovie implements Store. Unknown actor ids fail the whole create.
func (s *MemoryStore) CreateMovie(_ context.Context, in NewMovie) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActorsLocked(in.ActorIDs); err != nil {
		return 0, err
	}
	s.nextID.movie++
	id := s.nextID.movie
	s.movies[id] = MovieShort{ID: id, Title: in.Title, ReleaseDate: in.ReleaseDate}
	s.linkLocked(id, in.ActorIDs)
	return id, nil
}

// UpdateMovie implements Store.
func (s *MemoryStore) UpdateMovie(_ context.Context, id int64, patch MoviePatch) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.movies[id]
	if !ok {
		return Movie{}, fmt.Errorf("movie %d: %w", id, ErrNotFound)
	}
	if patch.ActorIDs != nil {
		if err := s.checkActorsLocked(patch.ActorIDs); err != nil {
			return Movie{}, err
		}
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.ReleaseDate != nil {
		m.ReleaseDate = *patch.ReleaseDate
	}
	s.movies[id] = m
	if patch.ActorIDs != nil {
		s.cast = filterCast(s.cast, func(c castRow) bool { return c.movieID != id })
		s.linkLocked(id, patch.ActorIDs)
	}
	return s.movieLocked(id), nil
}

// DeleteMovie implements Store.
func (s *MemoryStore) DeleteMovie(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.movies[id]; !ok {
		return fmt.Errorf("movie %d: %w", id, ErrNotFound)
	}
	delete(s.movies, id)
	s.cast = filterCast(s.cast, func(c castRow) bool { return c.movieID != id })
	return nil
}

// Ping implements Store. It always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) actorLocked(id int64) Actor {
	a := Actor{ActorShort: s.actors[id], Movies: []MovieShort{}}
	for _, c := range s.cast {
		if c.actorID != id {
			continue
		}
		if m, ok := s.movies[c.movieID]; ok {
			a.Movies = append(a.Movies, m)
		}
	}
	return a
}

func (s *MemoryStore) movieLocked(id int64) Movie {
	m := Movie{MovieShort: s.movies[id], Actors: []ActorShort{}}
	for _, c := range s.cast {
		if c.movieID != id {
			continue
		}
		if a, ok := s.actors[c.actorID]; ok {
			m.Actors = append(m.Actors, a)
		}
	}
	return m
}

func (s *MemoryStore) checkActorsLocked(ids []int64) error {
	for _, id := range ids {
		if _, ok := s.actors[id]; !ok {
			return fmt.Errorf("cast actor %d: %w", id, ErrUnprocessable)
		}
	}
	return nil
}

func (s *MemoryStore) linkLocked(movieID int64, actorIDs []int64) {
	for _, actorID := range actorIDs {
		s.nextID.cast++
		s.cast = append(s.cast, castRow{id: s.nextID.cast, movieID: movieID, actorID: actorID})
	}
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func pageOf(ids []int64, page Page) []int64 {
	start := page.Offset()
	if start < 0 || start >= len(ids) {
		return nil
	}
	end := min(start+page.Size, len(ids))
	return ids[start:end]
}

func filterCast(rows []castRow, keep func(castRow) bool) []castRow {
	out := rows[:0]
	for _, c := range rows {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
