// Package search maintains in-memory fuzzy-match indexes over the word
// and romanization node sets. The indexes are rebuilt from scratch on
// every store notification; there is no incremental update.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
)

// DefaultLimit bounds results when the caller does not set one
const DefaultLimit = 10

// NodeOptions tunes a node query. Excluded ids are filtered out before
// ranking, so exclusion never counts against the limit.
type NodeOptions struct {
	Limit      int
	ExcludeIDs []string
}

// TextOptions tunes a plain-text query over the word-form list
type TextOptions struct {
	Limit        int
	ExcludeTexts []string
}

type entry struct {
	node     models.Node
	prepared string
}

type textEntry struct {
	text     string
	prepared string
}

// Index holds the two fuzzy-searchable node indexes plus the flat
// word-form list. Reads and rebuilds may interleave freely.
type Index struct {
	repo   *graph.Repository
	logger zerolog.Logger

	mu     sync.RWMutex
	words  []entry
	romans []entry
	forms  []textEntry
}

// New creates an index over the given repository
func New(repo *graph.Repository, logger zerolog.Logger) *Index {
	return &Index{
		repo:   repo,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds diacritics and case so that "côté" and "cote" index
// and query identically
func Normalize(text string) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// Start subscribes to store mutations and performs the initial build.
// The subscription is registered first so a write committed while the
// initial build is running still triggers its own rebuild; every
// committed write is reflected within one notification cycle.
func (ix *Index) Start(ctx context.Context) error {
	ix.repo.Subscribe(func(nodeType models.NodeType) {
		if err := ix.rebuildType(context.Background(), nodeType); err != nil {
			ix.logger.Error().Err(err).
				Str("type", string(nodeType)).
				Msg("Index rebuild failed")
		}
	})
	return ix.Rebuild(ctx)
}

// Rebuild rebuilds both indexes and the form list from the store
func (ix *Index) Rebuild(ctx context.Context) error {
	if err := ix.rebuildType(ctx, models.NodeWord); err != nil {
		return err
	}
	return ix.rebuildType(ctx, models.NodeRoman)
}

func (ix *Index) rebuildType(ctx context.Context, nodeType models.NodeType) error {
	nodes, err := ix.repo.GetAllNodesByType(ctx, nodeType)
	if err != nil {
		return err
	}

	entries := make([]entry, len(nodes))
	for i, node := range nodes {
		entries[i] = entry{node: node, prepared: Normalize(node.Text)}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	switch nodeType {
	case models.NodeWord:
		ix.words = entries
		ix.forms = ix.forms[:0]
		for _, node := range nodes {
			for _, form := range node.Forms {
				ix.forms = append(ix.forms, textEntry{text: form, prepared: Normalize(form)})
			}
		}
	case models.NodeRoman:
		ix.romans = entries
	}
	return nil
}

// QueryNodeByText returns up to Limit nodes from the chosen index
// (Word or Romanization) ranked by fuzzy-match quality. A query with no
// match returns an empty result, never an error.
func (ix *Index) QueryNodeByText(queryText string, index models.NodeType, opts *NodeOptions) []models.Node {
	limit := DefaultLimit
	var exclude map[string]bool
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if len(opts.ExcludeIDs) > 0 {
			exclude = make(map[string]bool, len(opts.ExcludeIDs))
			for _, id := range opts.ExcludeIDs {
				exclude[id] = true
			}
		}
	}

	query := Normalize(strings.TrimSpace(queryText))
	if query == "" {
		return []models.Node{}
	}

	ix.mu.RLock()
	source := ix.words
	if index == models.NodeRoman {
		source = ix.romans
	}
	filtered := make([]entry, 0, len(source))
	for _, e := range source {
		if exclude != nil && exclude[e.node.ID] {
			continue
		}
		filtered = append(filtered, e)
	}
	ix.mu.RUnlock()

	targets := make([]string, len(filtered))
	for i, e := range filtered {
		targets[i] = e.prepared
	}

	ranks := fuzzy.RankFind(query, targets)
	sort.Sort(ranks)
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	results := make([]models.Node, len(ranks))
	for i, rank := range ranks {
		results[i] = filtered[rank.OriginalIndex].node
	}
	return results
}

// QueryTextsByText runs the same contract over the flat word-form list,
// returning the original (unnormalized) form strings
func (ix *Index) QueryTextsByText(queryText string, opts *TextOptions) []string {
	limit := DefaultLimit
	var exclude map[string]bool
	if opts != nil {
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		if len(opts.ExcludeTexts) > 0 {
			exclude = make(map[string]bool, len(opts.ExcludeTexts))
			for _, text := range opts.ExcludeTexts {
				exclude[text] = true
			}
		}
	}

	query := Normalize(strings.TrimSpace(queryText))
	if query == "" {
		return []string{}
	}

	ix.mu.RLock()
	filtered := make([]textEntry, 0, len(ix.forms))
	for _, e := range ix.forms {
		if exclude != nil && exclude[e.text] {
			continue
		}
		filtered = append(filtered, e)
	}
	ix.mu.RUnlock()

	targets := make([]string, len(filtered))
	for i, e := range filtered {
		targets[i] = e.prepared
	}

	ranks := fuzzy.RankFind(query, targets)
	sort.Sort(ranks)
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	results := make([]string, len(ranks))
	for i, rank := range ranks {
		results[i] = filtered[rank.OriginalIndex].text
	}
	return results
}
