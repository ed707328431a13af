package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vocablink/vocablink/pkg/backup"
	"github.com/vocablink/vocablink/pkg/cache"
	"github.com/vocablink/vocablink/pkg/config"
	"github.com/vocablink/vocablink/pkg/graph"
	"github.com/vocablink/vocablink/pkg/models"
	"github.com/vocablink/vocablink/pkg/notes"
	"github.com/vocablink/vocablink/pkg/search"
	"github.com/vocablink/vocablink/pkg/server"
	"github.com/vocablink/vocablink/pkg/storage"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "vocab-test.db")
	store, err := storage.NewSQLiteStore(dbPath, storage.DefaultSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zerolog.Nop()
	repo := graph.New(store, logger)
	require.NoError(t, repo.Init(ctx))

	searchIndex := search.New(repo, logger)
	require.NoError(t, searchIndex.Start(ctx))

	srv := server.New(
		config.Default(),
		repo,
		notes.New(store, logger),
		backup.New(store, repo, logger),
		searchIndex,
		cache.NewMemoryCache(100, time.Minute),
		logger,
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createWord(t *testing.T, ts *httptest.Server, text string) models.Node {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/nodes", map[string]string{
		"type": "word",
		"text": text,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Node](t, resp)
}

func TestServer_Health(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["ready"])
}

func TestServer_NodeLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	node := createWord(t, ts, "apple")
	assert.Len(t, node.ID, 8)
	assert.Equal(t, "apple", node.Text)

	resp, err := http.Get(ts.URL + "/api/v1/nodes/" + node.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Node](t, resp)
	assert.Equal(t, node, got)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/nodes/"+node.ID, map[string]string{
		"text": "apples",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/nodes/"+node.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/nodes/" + node.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_CreateNodeValidation(t *testing.T) {
	ts := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/nodes", map[string]string{
		"type": "nonsense",
		"text": "apple",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/nodes", map[string]string{
		"type": "word",
		"text": "  <>  ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_DuplicateNodeConflict(t *testing.T) {
	ts := setupTestServer(t)

	createWord(t, ts, "apple")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/nodes", map[string]string{
		"type": "word",
		"text": "apple",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_PatchExactlyOneField(t *testing.T) {
	ts := setupTestServer(t)
	node := createWord(t, ts, "apple")

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/v1/nodes/"+node.ID, map[string]any{
		"text":  "apples",
		"forms": []string{"apple"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/v1/nodes/"+node.ID, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_TwoWayEdgeCreatesBothDirections(t *testing.T) {
	ts := setupTestServer(t)

	n1 := createWord(t, ts, "hot")
	n2 := createWord(t, ts, "cold")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "antonym",
		"sourceId": n1.ID,
		"targetId": n2.ID,
		"twoWay":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[[]models.Edge](t, resp)
	require.Len(t, created, 2)
	assert.Equal(t, n1.ID, created[0].SourceID)
	assert.Equal(t, n2.ID, created[0].TargetID)
	assert.Equal(t, n2.ID, created[1].SourceID)
	assert.Equal(t, n1.ID, created[1].TargetID)
}

func TestServer_TwoWayIgnoredForDirectedTypes(t *testing.T) {
	ts := setupTestServer(t)

	n1 := createWord(t, ts, "り")
	n2 := createWord(t, ts, "ri")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "romanize",
		"sourceId": n1.ID,
		"targetId": n2.ID,
		"twoWay":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decode[[]models.Edge](t, resp)
	assert.Len(t, created, 1)
}

func TestServer_EdgeRequiresExistingEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	n1 := createWord(t, ts, "apple")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "means",
		"sourceId": n1.ID,
		"targetId": "ghost123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServer_DeleteEdgesBetween(t *testing.T) {
	ts := setupTestServer(t)

	n1 := createWord(t, ts, "hot")
	n2 := createWord(t, ts, "cold")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "antonym",
		"sourceId": n1.ID,
		"targetId": n2.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete,
		ts.URL+"/api/v1/edges?sourceId="+n1.ID+"&targetId="+n2.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]int64](t, resp)
	assert.Equal(t, int64(1), body["deleted"])
}

func TestServer_GraphExcludesIsolatedNodes(t *testing.T) {
	ts := setupTestServer(t)

	n1 := createWord(t, ts, "a")
	n2 := createWord(t, ts, "b")
	isolated := createWord(t, ts, "alone")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "means",
		"sourceId": n1.ID,
		"targetId": n2.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/graph")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	display := decode[models.DisplayGraph](t, resp)
	require.Len(t, display.Links, 1)
	ids := make([]string, len(display.Nodes))
	for i, node := range display.Nodes {
		ids[i] = node.ID
	}
	assert.ElementsMatch(t, []string{n1.ID, n2.ID}, ids)
	assert.NotContains(t, ids, isolated.ID)
}

func TestServer_ReferenceData(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/languages")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	languages := decode[[]models.Node](t, resp)
	assert.Len(t, languages, len(models.AllLanguages))

	resp, err = http.Get(ts.URL + "/api/v1/pos")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pos := decode[[]models.Node](t, resp)
	assert.Len(t, pos, len(models.AllPOS))
}

func TestServer_Notes(t *testing.T) {
	ts := setupTestServer(t)
	node := createWord(t, ts, "apple")
	noteURL := ts.URL + "/api/v1/nodes/" + node.ID + "/note"

	resp, err := http.Get(noteURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "", body["note"])

	resp = doJSON(t, http.MethodPut, noteURL, map[string]string{"note": "a fruit"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(noteURL)
	require.NoError(t, err)
	body = decode[map[string]string](t, resp)
	assert.Equal(t, "a fruit", body["note"])

	resp = doJSON(t, http.MethodDelete, noteURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(noteURL)
	require.NoError(t, err)
	body = decode[map[string]string](t, resp)
	assert.Equal(t, "", body["note"])
}

func TestServer_SearchAfterCreate(t *testing.T) {
	ts := setupTestServer(t)
	createWord(t, ts, "蘋果")

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/api/v1/search?q=" + "%E8%98%8B")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var results []models.Node
		if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
			return false
		}
		return len(results) == 1 && results[0].Text == "蘋果"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestServer_ExportImportRoundTrip(t *testing.T) {
	ts := setupTestServer(t)

	n1 := createWord(t, ts, "apple")
	n2 := createWord(t, ts, "Apfel")
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/edges", map[string]any{
		"type":     "means",
		"sourceId": n1.ID,
		"targetId": n2.ID,
		"twoWay":   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/export")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), backup.FileName)

	blob := new(bytes.Buffer)
	_, err = blob.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	resp, err = http.Post(ts.URL+"/api/v1/import", "application/json", bytes.NewReader(blob.Bytes()))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/nodes/" + n1.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Node](t, resp)
	assert.Equal(t, "apple", got.Text)
}

func TestServer_ImportRejectsGarbage(t *testing.T) {
	ts := setupTestServer(t)
	createWord(t, ts, "apple")

	resp, err := http.Post(ts.URL+"/api/v1/import", "application/json",
		bytes.NewReader([]byte("definitely not an export")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Rollback kept the existing data reachable
	resp, err = http.Get(ts.URL + "/api/v1/nodes?type=word")
	require.NoError(t, err)
	words := decode[[]models.Node](t, resp)
	assert.Len(t, words, 1)
}
