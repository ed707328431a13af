// Package notes manages the free-text note side-store. Notes have a
// lifecycle independent from the node they annotate.
package notes

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/storage"
)

// Repository provides keyed note access over the annotation table
type Repository struct {
	store  storage.Store
	logger zerolog.Logger
}

// New creates a note repository over the given store
func New(store storage.Store, logger zerolog.Logger) *Repository {
	return &Repository{
		store:  store,
		logger: logger.With().Str("component", "notes").Logger(),
	}
}

// GetWordNoteById returns the note for a node, or the empty string when
// the id is empty or no note exists. Never returns ErrNotFound.
func (r *Repository) GetWordNoteById(ctx context.Context, nodeID string) (string, error) {
	if nodeID == "" {
		return "", nil
	}
	annotation, err := r.store.GetAnnotation(ctx, nodeID)
	if err == storage.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return annotation.Note, nil
}

// UpdateWordNoteById stores the note for a node. An empty note deletes
// the row so the store never holds empty-note rows. When no row exists
// yet the update falls back to an insert; this is an upsert by
// fallback, not an atomic primitive.
func (r *Repository) UpdateWordNoteById(ctx context.Context, nodeID, note string) error {
	if note == "" {
		return r.store.DeleteAnnotation(ctx, nodeID)
	}
	affected, err := r.store.UpdateAnnotation(ctx, nodeID, note)
	if err != nil {
		return err
	}
	if affected == 0 {
		return r.store.InsertAnnotation(ctx, models.NodeAnnotation{ID: nodeID, Note: note})
	}
	return nil
}

// DeleteWordNoteById removes the note unconditionally; a missing row is
// not an error
func (r *Repository) DeleteWordNoteById(ctx context.Context, nodeID string) error {
	return r.store.DeleteAnnotation(ctx, nodeID)
}
