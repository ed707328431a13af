package search_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/search"
	"github.com/vocablink/vocablink/pkg/storage"
)

func setupSearchTest(t *testing.T) (*search.Index, *graph.Repository) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "vocab-test.db")
	store, err := storage.NewSQLiteStore(dbPath, storage.DefaultSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := graph.New(store, zerolog.Nop())
	require.NoError(t, repo.Init(context.Background()))

	return search.New(repo, zerolog.Nop()), repo
}

func addWord(t *testing.T, repo *graph.Repository, text string) *models.Node {
	t.Helper()
	node, err := repo.CreateNewNode(context.Background(), models.NodeWord, text)
	require.NoError(t, err)
	return node
}

func texts(nodes []models.Node) []string {
	out := make([]string, len(nodes))
	for i, node := range nodes {
		out[i] = node.Text
	}
	return out
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cote", search.Normalize("côté"))
	assert.Equal(t, "apple", search.Normalize("Apple"))
	assert.Equal(t, "蘋果", search.Normalize("蘋果"))
	assert.Equal(t, "uber", search.Normalize("Über"))
}

func TestQueryNodeByText_CJK(t *testing.T) {
	ix, repo := setupSearchTest(t)

	addWord(t, repo, "蘋果")
	addWord(t, repo, "りんご")
	addWord(t, repo, "apple")
	require.NoError(t, ix.Rebuild(context.Background()))

	results := ix.QueryNodeByText("蘋", models.NodeWord, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "蘋果", results[0].Text)
}

func TestQueryNodeByText_Diacritics(t *testing.T) {
	ix, repo := setupSearchTest(t)

	addWord(t, repo, "cote")
	addWord(t, repo, "côte")
	addWord(t, repo, "côté")
	addWord(t, repo, "unrelated")
	require.NoError(t, ix.Rebuild(context.Background()))

	// Bare and accented queries both reach all three spellings
	for _, query := range []string{"cote", "côté"} {
		results := ix.QueryNodeByText(query, models.NodeWord, nil)
		assert.ElementsMatch(t, []string{"cote", "côte", "côté"}, texts(results), "query %q", query)
	}
}

func TestQueryNodeByText_NoMatchReturnsEmpty(t *testing.T) {
	ix, repo := setupSearchTest(t)

	addWord(t, repo, "apple")
	require.NoError(t, ix.Rebuild(context.Background()))

	results := ix.QueryNodeByText("zzzz", models.NodeWord, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQueryNodeByText_EmptyQueryReturnsEmpty(t *testing.T) {
	ix, repo := setupSearchTest(t)

	addWord(t, repo, "apple")
	require.NoError(t, ix.Rebuild(context.Background()))

	assert.Empty(t, ix.QueryNodeByText("", models.NodeWord, nil))
	assert.Empty(t, ix.QueryNodeByText("   ", models.NodeWord, nil))
}

func TestQueryNodeByText_ExclusionBeforeLimit(t *testing.T) {
	ix, repo := setupSearchTest(t)

	n1 := addWord(t, repo, "apple")
	addWord(t, repo, "applet")
	addWord(t, repo, "appleseed")
	require.NoError(t, ix.Rebuild(context.Background()))

	results := ix.QueryNodeByText("apple", models.NodeWord, &search.NodeOptions{
		Limit:      2,
		ExcludeIDs: []string{n1.ID},
	})
	require.Len(t, results, 2)
	for _, node := range results {
		assert.NotEqual(t, n1.ID, node.ID)
	}
}

func TestQueryNodeByText_RomanizationIndex(t *testing.T) {
	ix, repo := setupSearchTest(t)
	ctx := context.Background()

	addWord(t, repo, "りんご")
	roman, err := repo.CreateNewNode(ctx, models.NodeRoman, "ringo")
	require.NoError(t, err)
	require.NoError(t, ix.Rebuild(ctx))

	results := ix.QueryNodeByText("ringo", models.NodeRoman, nil)
	require.Len(t, results, 1)
	assert.Equal(t, roman.ID, results[0].ID)

	// The word index does not see romanizations
	assert.Empty(t, ix.QueryNodeByText("ringo", models.NodeWord, nil))
}

func TestQueryNodeByText_BestMatchFirst(t *testing.T) {
	ix, repo := setupSearchTest(t)

	addWord(t, repo, "appleseed")
	addWord(t, repo, "apple")
	require.NoError(t, ix.Rebuild(context.Background()))

	results := ix.QueryNodeByText("apple", models.NodeWord, nil)
	require.Len(t, results, 2)
	assert.Equal(t, "apple", results[0].Text)
}

func TestQueryTextsByText_Forms(t *testing.T) {
	ix, repo := setupSearchTest(t)
	ctx := context.Background()

	node := addWord(t, repo, "go")
	require.NoError(t, repo.UpdateNode(ctx, node.ID, models.FormsPatch{"going", "went", "gone"}))
	require.NoError(t, ix.Rebuild(ctx))

	results := ix.QueryTextsByText("gon", nil)
	assert.Contains(t, results, "gone")

	excluded := ix.QueryTextsByText("gon", &search.TextOptions{ExcludeTexts: []string{"gone"}})
	assert.NotContains(t, excluded, "gone")
}

func TestStart_RebuildsOnMutation(t *testing.T) {
	ix, repo := setupSearchTest(t)

	require.NoError(t, ix.Start(context.Background()))
	assert.Empty(t, ix.QueryNodeByText("apple", models.NodeWord, nil))

	addWord(t, repo, "apple")

	require.Eventually(t, func() bool {
		return len(ix.QueryNodeByText("apple", models.NodeWord, nil)) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStart_IndexesWriteDuringStartup(t *testing.T) {
	ix, repo := setupSearchTest(t)

	// A write committed while Start's initial build is running is
	// either seen by that build or triggers its own rebuild; it must
	// never be lost until the next mutation.
	createErr := make(chan error, 1)
	go func() {
		_, err := repo.CreateNewNode(context.Background(), models.NodeWord, "apple")
		createErr <- err
	}()
	require.NoError(t, ix.Start(context.Background()))
	require.NoError(t, <-createErr)

	require.Eventually(t, func() bool {
		return len(ix.QueryNodeByText("apple", models.NodeWord, nil)) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStart_RebuildsAfterDelete(t *testing.T) {
	ix, repo := setupSearchTest(t)
	ctx := context.Background()

	node := addWord(t, repo, "apple")
	require.NoError(t, ix.Start(ctx))
	require.Len(t, ix.QueryNodeByText("apple", models.NodeWord, nil), 1)

	require.NoError(t, repo.DeleteNodeAndConnectedEdges(ctx, node.ID))

	require.Eventually(t, func() bool {
		return len(ix.QueryNodeByText("apple", models.NodeWord, nil)) == 0
	}, 3*time.Second, 20*time.Millisecond)
}
