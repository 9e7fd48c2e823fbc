// Package store keeps one document per live room. Every backend offers an
// atomic create and a compare-and-swap save keyed on the document version.
package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
)

var ErrNotFound = errors.New("room document not found")
var ErrCodeTaken = errors.New("room code taken")
var ErrVersionConflict = errors.New("room document version conflict")

type Document struct {
	Version int         `json:"version"`
	Room    engine.Room `json:"room"`
}

type Store interface {
	// Create stores doc only if no document exists under doc.Room.Code.
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, code string) (Document, error)
	// Save replaces the document only if the stored version equals expected.
	Save(ctx context.Context, doc Document, expected int) error
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]Document, error)
}
