// Package backup implements the export/import protocol: the full store
// serialized to a transportable blob, and restore with rollback.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/storage"
)

const (
	// FormatName identifies the export blob format
	FormatName = "vocablink-export"
	// FormatVersion is the export envelope version, independent of the
	// store schema version carried inside
	FormatVersion = 1
	// FileName is the conventional name offered when the blob is
	// downloaded
	FileName = "vocab.db"
)

var (
	// ErrBadFormat is returned when a blob is not a recognizable export
	ErrBadFormat = errors.New("unrecognized export format")
	// ErrRestoreFailed is returned when an import failed AND the
	// rollback to the pre-import state also failed. The store is left
	// in an undefined partial state; integrity can no longer be
	// guaranteed.
	ErrRestoreFailed = errors.New("import rollback failed, store left in partial state")
)

type envelope struct {
	Format        string `json:"format"`
	FormatVersion int    `json:"formatVersion"`
	storage.Snapshot
}

// Service performs export and import against a store. The optional
// repository is re-reconciled and its subscribers notified after a
// successful import.
type Service struct {
	store  storage.Store
	repo   *graph.Repository
	logger zerolog.Logger
}

// New creates a backup service. repo may be nil when no reconciliation
// is wanted (tests, offline tooling).
func New(store storage.Store, repo *graph.Repository, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		repo:   repo,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Export serializes every table plus the schema version into a single
// blob. Pure read, no mutation.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.store.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dump store: %w", err)
	}
	return json.Marshal(envelope{
		Format:        FormatName,
		FormatVersion: FormatVersion,
		Snapshot:      *snap,
	})
}

// Import replaces the full store contents with the blob's. Protocol:
// snapshot current state, clear all tables, load the blob; on any
// failure re-load the snapshot so the store ends where it started. The
// store ends in exactly one of {fully-new, fully-original} unless the
// rollback itself fails, which surfaces as ErrRestoreFailed.
func (s *Service) Import(ctx context.Context, blob []byte) error {
	rollback, err := s.store.Dump(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot store before import: %w", err)
	}

	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear tables: %w", err)
	}

	if err := s.ingest(ctx, blob); err != nil {
		s.logger.Warn().Err(err).Msg("Import failed, rolling back")
		if restoreErr := s.store.Load(ctx, rollback); restoreErr != nil {
			s.logger.Error().Err(restoreErr).Msg("Rollback failed")
			return fmt.Errorf("%w: import error: %v, rollback error: %v",
				ErrRestoreFailed, err, restoreErr)
		}
		return fmt.Errorf("import failed: %w", err)
	}

	if s.repo != nil {
		// Reference data in the blob may not match the canonical lists
		// of this build; reconcile exactly as Init does.
		if err := s.repo.Reconcile(ctx); err != nil {
			return fmt.Errorf("post-import reconciliation failed: %w", err)
		}
		s.repo.NotifyChanged(models.NodeWord)
		s.repo.NotifyChanged(models.NodeRoman)
	}

	s.logger.Info().Msg("Import completed")
	return nil
}

func (s *Service) ingest(ctx context.Context, blob []byte) error {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if env.Format != FormatName {
		return fmt.Errorf("%w: format %q", ErrBadFormat, env.Format)
	}
	if env.FormatVersion > FormatVersion {
		return fmt.Errorf("%w: version %d newer than supported %d",
			ErrBadFormat, env.FormatVersion, FormatVersion)
	}
	return s.store.Load(ctx, &env.Snapshot)
}
