package notes_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocablink/vocablink/pkg/notes"
	"github.com/vocablink/vocablink/pkg/storage"
)

func setupNotesTest(t *testing.T) (*notes.Repository, storage.Store) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "vocab-test.db")
	store, err := storage.NewSQLiteStore(dbPath, storage.DefaultSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return notes.New(store, zerolog.Nop()), store
}

func TestNotes_GetAbsentReturnsEmpty(t *testing.T) {
	repo, _ := setupNotesTest(t)

	note, err := repo.GetWordNoteById(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "", note)
}

func TestNotes_GetEmptyIdReturnsEmpty(t *testing.T) {
	repo, _ := setupNotesTest(t)

	note, err := repo.GetWordNoteById(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", note)
}

func TestNotes_UpdateInsertsWhenAbsent(t *testing.T) {
	repo, _ := setupNotesTest(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", "first note"))

	note, err := repo.GetWordNoteById(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "first note", note)
}

func TestNotes_UpdateOverwritesExisting(t *testing.T) {
	repo, _ := setupNotesTest(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", "first"))
	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", "second"))

	note, err := repo.GetWordNoteById(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "second", note)
}

func TestNotes_EmptyNoteDeletesRow(t *testing.T) {
	repo, store := setupNotesTest(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", "a note"))
	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", ""))

	_, err := store.GetAnnotation(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	note, err := repo.GetWordNoteById(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "", note)
}

func TestNotes_DeleteIsIdempotent(t *testing.T) {
	repo, _ := setupNotesTest(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateWordNoteById(ctx, "n1", "a note"))
	require.NoError(t, repo.DeleteWordNoteById(ctx, "n1"))
	require.NoError(t, repo.DeleteWordNoteById(ctx, "n1"))

	note, err := repo.GetWordNoteById(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "", note)
}
