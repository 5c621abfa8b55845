// Package casting implements the casting agency API: actors, movies and the
// cast that links them.
//
// Every route is protected by an auth.Gate and requires exactly one
// permission:
//
//	GET    /actors         get:actors
//	POST   /actors         create:actors
//	PATCH  /actors/{id}    update:actors
//	DELETE /actors/{id}    delete:actors
//	GET    /movies         get:movies
//	POST   /movies         create:movies
//	PATCH  /movies/{id}    update:movies
//	DELETE /movies/{id}    delete:movies
//
// Storage is behind the Store interface, with an in-memory implementation for
// tests and local runs and a PostgreSQL implementation built on pgx.
package casting
