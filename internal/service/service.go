// Package service defines the backend-agnostic interface for todo operations.
package service

import "context"

// Service is the remote todo collection.
// The sync client talks to the collection only through this interface;
// it never imports a transport directly.
type Service interface {
	// List returns every todo in the order the store returns them.
	List(ctx context.Context) ([]Task, error)

	// Create stores a new todo and returns it with its assigned ID.
	Create(ctx context.Context, draft Draft) (Task, error)

	// SetDone updates only the done field of a todo.
	// The store's response body is not returned.
	SetDone(ctx context.Context, id int, done bool) error

	// Update replaces title, description and done of a todo and
	// returns the record as stored.
	Update(ctx context.Context, id int, draft Draft) (Task, error)

	// Delete removes a todo.
	Delete(ctx context.Context, id int) error
}
