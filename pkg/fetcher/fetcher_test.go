package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanehh/datapipe/pkg/auth"
	"github.com/ivanehh/datapipe/pkg/backup"
	"github.com/ivanehh/datapipe/pkg/files"
	"github.com/ivanehh/datapipe/pkg/logging"
	"github.com/ivanehh/datapipe/pkg/netcom"
	"github.com/ivanehh/datapipe/pkg/processor"
)

// countingAuth re-authenticates on every call, like an endpoint strategy
type countingAuth struct {
	calls  int
	token  string
	failOn int
}

func (c *countingAuth) Authenticate(context.Context) (string, error) {
	c.calls++
	if c.failOn > 0 && c.calls == c.failOn {
		return "", auth.ErrAuthentication
	}
	return c.token, nil
}

func (c *countingAuth) IsAuthenticated() bool {
	return c.calls > 0
}

func apiServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/items", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

var page2 = url.Values{"page": {"2"}}

func TestFetch(t *testing.T) {
	srv, hits := apiServer(t, http.StatusOK, `{"data":{"items":[1,2]}}`)

	f := New(auth.NewManualToken("secret"), processor.NewFieldExtractor("data.items"))
	got, err := f.Fetch(context.Background(), srv.URL, "items", page2)
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, got)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchJoinsWithOneSlash(t *testing.T) {
	srv, hits := apiServer(t, http.StatusOK, `{}`)

	f := New(auth.NewManualToken("secret"), processor.JSON{})
	for _, tc := range [][2]string{{srv.URL + "/", "/items"}, {srv.URL + "/", "items"}, {srv.URL, "/items"}} {
		_, err := f.Fetch(context.Background(), tc[0], tc[1], page2)
		require.NoError(t, err, tc)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchLogsCarryEndpointAndPath(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New("test", logging.Config{Level: "debug"}, logging.WithConsole(&buf))
	srv, _ := apiServer(t, http.StatusOK, `{"k":"v"}`)
	out := filepath.Join(t.TempDir(), "k.json")

	f := New(auth.NewManualToken("secret"), processor.JSON{}, WithLogger(log))
	_, err := f.FetchAndStore(context.Background(), srv.URL, "items", page2, out)
	require.NoError(t, err)

	records := map[string]map[string]any{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		records[rec["msg"].(string)] = rec
	}
	require.Contains(t, records, "fetched")
	assert.Equal(t, "items", records["fetched"]["endpoint"])
	require.Contains(t, records, "stored")
	assert.Equal(t, out, records["stored"]["path"])
	assert.NotContains(t, records["stored"], "endpoint")
}

func TestFetchAuthenticatesTwiceWhenUnauthenticated(t *testing.T) {
	srv, _ := apiServer(t, http.StatusOK, `{}`)

	a := &countingAuth{token: "secret"}
	f := New(a, processor.JSON{})
	_, err := f.Fetch(context.Background(), srv.URL, "items", page2)
	require.NoError(t, err)
	assert.Equal(t, 2, a.calls)

	_, err = f.Fetch(context.Background(), srv.URL, "items", page2)
	require.NoError(t, err)
	assert.Equal(t, 3, a.calls, "an authenticated strategy is asked once for the header token")
}

func TestFetchAuthFailure(t *testing.T) {
	srv, hits := apiServer(t, http.StatusOK, `{}`)

	for _, failOn := range []int{1, 2} {
		_, err := New(&countingAuth{token: "secret", failOn: failOn}, processor.JSON{}).
			Fetch(context.Background(), srv.URL, "items", page2)
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.ErrorIs(t, err, auth.ErrAuthentication)
	}
	assert.Zero(t, hits.Load())
}

func TestFetchFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv, _ := apiServer(t, http.StatusNotFound, `missing`)
		_, err := New(auth.NewManualToken("secret"), processor.JSON{}).Fetch(context.Background(), srv.URL, "items", page2)
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.Contains(t, err.Error(), "items")
		var httpErr *netcom.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv, _ := apiServer(t, http.StatusOK, `<html>`)
		_, err := New(auth.NewManualToken("secret"), processor.JSON{}).Fetch(context.Background(), srv.URL, "items", page2)
		assert.ErrorIs(t, err, ErrDataFetch)
	})

	t.Run("processor", func(t *testing.T) {
		srv, _ := apiServer(t, http.StatusOK, `{"a":1}`)
		_, err := New(auth.NewManualToken("secret"), processor.NewFieldExtractor("b")).
			Fetch(context.Background(), srv.URL, "items", page2)
		assert.ErrorIs(t, err, ErrDataFetch)
		assert.ErrorIs(t, err, processor.ErrFieldNotFound)
	})

	t.Run("transport", func(t *testing.T) {
		srv, _ := apiServer(t, http.StatusOK, `{}`)
		srv.Close()
		_, err := New(auth.NewManualToken("secret"), processor.JSON{}).Fetch(context.Background(), srv.URL, "items", page2)
		assert.ErrorIs(t, err, ErrDataFetch)
	})
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	data := []any{map[string]any{"id": "1", "name": "a"}}
	jsonPath, csvPath := filepath.Join(dir, "out.json"), filepath.Join(dir, "out.csv")

	f := New(auth.NewManualToken("x"), processor.JSON{})
	require.NoError(t, f.Store(data, jsonPath, csvPath))

	got, err := files.NewJSONHandler(jsonPath).Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
	rows, err := files.NewCSVHandler(csvPath).Read()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"id", "name"}, {"1", "a"}}, rows)
}

func TestStoreFailFast(t *testing.T) {
	dir := t.TempDir()
	first, bad, last := filepath.Join(dir, "a.json"), filepath.Join(dir, "a.parquet"), filepath.Join(dir, "b.json")

	err := New(auth.NewManualToken("x"), processor.JSON{}).Store(map[string]any{"k": "v"}, first, bad, last)
	assert.ErrorIs(t, err, ErrFileSave)
	assert.ErrorIs(t, err, files.ErrUnsupportedFileType)
	assert.Contains(t, err.Error(), bad)

	_, err = os.Stat(first)
	assert.NoError(t, err, "earlier writes are not rolled back")
	_, err = os.Stat(last)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreWithBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	f := New(auth.NewManualToken("x"), processor.JSON{}, WithBackup(backup.New()))

	require.NoError(t, f.Store(map[string]any{"v": float64(1)}, path))
	_, err := os.Stat(filepath.Join(dir, backup.ArchiveDir))
	assert.True(t, os.IsNotExist(err), "nothing to back up on first write")

	require.NoError(t, f.Store(map[string]any{"v": float64(2)}, path))
	archived, err := backup.New().List(path)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	old, err := files.NewJSONHandler(archived[0]).Read()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": float64(1)}, old)
}

func TestFetchAndStore(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "items.yaml")

	srv, _ := apiServer(t, http.StatusOK, `{"count":2}`)
	f := New(auth.NewManualToken("secret"), processor.JSON{}, WithFactory(files.Extended()))
	data, err := f.FetchAndStore(context.Background(), srv.URL, "items", page2, out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": json.Number("2")}, data)
	_, err = os.Stat(out)
	assert.NoError(t, err)

	failing, _ := apiServer(t, http.StatusInternalServerError, `boom`)
	other := filepath.Join(dir, "never.json")
	_, err = f.FetchAndStore(context.Background(), failing.URL, "items", page2, other)
	assert.ErrorIs(t, err, ErrDataFetch)
	_, err = os.Stat(other)
	assert.True(t, os.IsNotExist(err), "a failed fetch stores nothing")
}

func TestFetchAndStoreKeepsLargeIntegers(t *testing.T) {
	dir := t.TempDir()
	srv, _ := apiServer(t, http.StatusOK, `{"id":9007199254740993}`)
	outs := []string{
		filepath.Join(dir, "id.json"),
		filepath.Join(dir, "id.csv"),
		filepath.Join(dir, "id.yaml"),
		filepath.Join(dir, "id.toml"),
	}

	f := New(auth.NewManualToken("secret"), processor.Flattener{}, WithFactory(files.Extended()))
	data, err := f.FetchAndStore(context.Background(), srv.URL, "items", page2, outs...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("9007199254740993")}, data)

	for _, out := range outs {
		b, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(b), "9007199254740993", out)
		assert.NotContains(t, string(b), "9007199254740992", out)
	}
}
