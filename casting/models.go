package casting

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire format of release dates.
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: release_date %q", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the date in DateLayout.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ActorShort is the compact actor representation.
type ActorShort struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// Actor is an actor with the movies they are cast in.
type Actor struct {
	ActorShort
	Movies []MovieShort `json:"movies"`
}

// Short drops the movie list.
func (a Actor) Short() ActorShort {
	return a.ActorShort
}

// MovieShort is the compact movie representation.
type MovieShort struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate Date   `json:"release_date"`
}

// Movie is a movie with its cast.
type Movie struct {
	MovieShort
	Actors []ActorShort `json:"actors"`
}

// Short drops the cast list.
func (m Movie) Short() MovieShort {
	return m.MovieShort
}

// NewActor holds the fields required to create an actor.
type NewActor struct {
	Name   string
	Gender string
}

// ActorPatch holds optional actor updates. Nil fields are left unchanged.
type ActorPatch struct {
	Name   *string
	Gender *string
}

// Empty reports whether the patch changes nothing.
func (p ActorPatch) Empty() bool {
	return p.Name == nil && p.Gender == nil
}

// NewMovie holds the fields required to create a movie. ActorIDs are linked
// through cast rows.
type NewMovie struct {
	Title       string
	ReleaseDate Date
	ActorIDs    []int64
}

// MoviePatch holds optional movie updates. A non-nil ActorIDs replaces the
// whole cast.
type MoviePatch struct {
	Title       *string
	ReleaseDate *Date
	ActorIDs    []int64
}

// Empty reports whether the patch changes nothing.
func (p MoviePatch) Empty() bool {
	return p.Title == nil && p.ReleaseDate == nil && p.ActorIDs == nil
}

// PageSize is the number of actors or movies per page.
const PageSize = 5

// Page selects a 1-based page of PageSize items ordered by id.
type Page struct {
	Number int
	Size   int
}

// NewPage returns page n of PageSize items.
func NewPage(n int) Page {
	return Page{Number: n, Size: PageSize}
}

// Offset returns the number of items before the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
