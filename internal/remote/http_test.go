package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	header http.Header
	body   []byte
}

func newTestServer(t *testing.T, status int, version string, body any) (*HTTPServer, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = map[string]string{}
		for k := range r.URL.Query() {
			rec.query[k] = r.URL.Query().Get(k)
		}
		rec.header = r.Header.Clone()
		if version != "" {
			w.Header().Set("Last-Modified-Version", version)
		}
		w.WriteHeader(status)
		if body != nil {
			require.NoError(t, json.NewEncoder(w).Encode(body))
		}
	}))
	t.Cleanup(ts.Close)
	return NewHTTPServer(ts.URL, 475425, "test-key", ts.Client()), rec
}

func TestItemVersions_SendsSinceAndRecordsVersion(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "42", map[string]int64{"AAAAAAAA": 41})

	versions, err := srv.ItemVersions(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"AAAAAAAA": 41}, versions)
	assert.Equal(t, "/users/475425/items", rec.path)
	assert.Equal(t, "30", rec.query["since"])
	assert.Equal(t, "versions", rec.query["format"])
	assert.Equal(t, "test-key", rec.header.Get("Zotero-API-Key"))
	assert.Equal(t, "3", rec.header.Get("Zotero-API-Version"))
	assert.Equal(t, int64(42), srv.LastModifiedVersion())
}

func TestItemVersions_OmitsSinceOnFirstSync(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "1", map[string]int64{})
	_, err := srv.ItemVersions(context.Background(), -1)
	require.NoError(t, err)
	_, present := rec.query["since"]
	assert.False(t, present)
}

func TestItems_SendsCommaJoinedKeyBatch(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "5", []map[string]any{
		{"key": "AAAAAAAA", "data": map[string]any{"key": "AAAAAAAA", "version": 5, "title": "one"}},
		{"key": "BBBBBBBB", "data": map[string]any{"key": "BBBBBBBB", "version": 4, "title": "two"}},
	})

	payloads, err := srv.Items(context.Background(), []string{"AAAAAAAA", "BBBBBBBB"})
	require.NoError(t, err)

	assert.Equal(t, "AAAAAAAA,BBBBBBBB", rec.query["itemKey"])
	require.Len(t, payloads, 2)
	assert.Equal(t, "AAAAAAAA", payloads[0].Key())
	assert.Equal(t, int64(5), payloads[0].Version())
	assert.Equal(t, "one", payloads[0]["title"])
}

func TestItems_RejectsOversizedBatch(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "", nil)
	keys := make([]string, BatchLimit+1)
	_, err := srv.Items(context.Background(), keys)
	require.Error(t, err)
}

func TestCreateItems_SendsVersionGuardHeader(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "7", WriteResult{
		Success: map[string]string{"0": "AAAAAAAA"},
	})

	res, err := srv.CreateItems(context.Background(), []Payload{{"key": "AAAAAAAA", "version": int64(6)}}, 6)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "6", rec.header.Get("If-Unmodified-Since-Version"))
	assert.Equal(t, "application/json", rec.header.Get("Content-Type"))
	assert.Equal(t, map[string]string{"0": "AAAAAAAA"}, res.Success)
	assert.Equal(t, int64(7), srv.LastModifiedVersion())
}

func TestCreateItems_MapsConflictToSentinel(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusPreconditionFailed, "9", nil)
	_, err := srv.CreateItems(context.Background(), []Payload{{"key": "AAAAAAAA"}}, 3)
	require.ErrorIs(t, err, ErrPreconditionFailed)
	assert.Equal(t, int64(9), srv.LastModifiedVersion(), "version header is tracked even on conflict")
}

func TestDeleteItems_SendsKeysAndGuard(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusNoContent, "8", nil)

	require.NoError(t, srv.DeleteItems(context.Background(), []string{"AAAAAAAA", "BBBBBBBB"}, 7))

	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "AAAAAAAA,BBBBBBBB", rec.query["itemKey"])
	assert.Equal(t, "7", rec.header.Get("If-Unmodified-Since-Version"))
}

func TestCollection_UnwrapsDataEnvelope(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "3", map[string]any{
		"key":  "COLL0001",
		"data": map[string]any{"key": "COLL0001", "version": 3, "name": "papers"},
	})

	p, err := srv.Collection(context.Background(), "COLL0001")
	require.NoError(t, err)
	assert.Equal(t, "/users/475425/collections/COLL0001", rec.path)
	assert.Equal(t, "papers", p["name"])
}

func TestCollection_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, "", nil)
	_, err := srv.Collection(context.Background(), "MISSING1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestItemTypes_FlattensVocabulary(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, "", []map[string]string{
		{"itemType": "book"}, {"itemType": "thesis"},
	})
	types, err := srv.ItemTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/itemTypes", rec.path)
	assert.Equal(t, []string{"book", "thesis"}, types)
}

func TestPayload_VersionNumericForms(t *testing.T) {
	assert.Equal(t, int64(5), Payload{"version": int64(5)}.Version())
	assert.Equal(t, int64(5), Payload{"version": 5}.Version())
	assert.Equal(t, int64(5), Payload{"version": 5.0}.Version())
	assert.Zero(t, Payload{}.Version())
}
