package knowledge

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/tempusvestis/internal/httpretry"
)

type fakePinecone struct {
	mu       sync.Mutex
	requests map[string][]map[string]any
	apiKeys  []string
}

func (f *fakePinecone) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	record := func(r *http.Request) map[string]any {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.apiKeys = append(f.apiKeys, r.Header.Get("Api-Key"))
		var body map[string]any
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &body)
		}
		if f.requests == nil {
			f.requests = map[string][]map[string]any{}
		}
		f.requests[r.URL.Path] = append(f.requests[r.URL.Path], body)
		return body
	}
	mux.HandleFunc("/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		body := record(r)
		_, _ = io.WriteString(w, `{"upsertedCount":`+jsonLen(body["vectors"])+`}`)
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = io.WriteString(w, `{"matches":[
			{"id":"b","score":0.71,"metadata":{"kind":"document","text":"Pack an umbrella.","section":"RAIN"}},
			{"id":"a","score":0.42,"metadata":{"kind":"document","text":"Pack a coat.","section":"COLD"}}]}`)
	})
	mux.HandleFunc("/vectors/fetch", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		assert.Equal(t, "corpus-version", r.URL.Query().Get("ids"))
		_, _ = io.WriteString(w, `{"vectors":{"corpus-version":{"id":"corpus-version","metadata":{"kind":"version","version":"v42"}}}}`)
	})
	mux.HandleFunc("/describe_index_stats", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = io.WriteString(w, `{"dimension":3,"totalVectorCount":14}`)
	})
	mux.HandleFunc("/vectors/delete", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = io.WriteString(w, `{}`)
	})
	return mux
}

func jsonLen(v any) string {
	list, _ := v.([]any)
	b, _ := json.Marshal(len(list))
	return string(b)
}

func newTestPinecone(t *testing.T) (*PineconeStore, *fakePinecone) {
	t.Helper()
	fake := &fakePinecone{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	doer := httpretry.New(srv.Client())
	doer.InitialDelay = time.Millisecond
	store, err := NewPineconeStore(srv.URL+"/", "pc-key", doer)
	require.NoError(t, err)
	return store, fake
}

func TestPineconeStore_UpsertBatchesAndVersion(t *testing.T) {
	store, fake := newTestPinecone(t)
	ctx := context.Background()

	require.Error(t, store.SetVersion(ctx, "v1"), "dimension is unknown before the first upsert")

	vectors := make([]Vector, 150)
	for i := range vectors {
		vectors[i] = Vector{ID: string(rune('a' + i%26)), Values: []float32{1, 2, 3}, Document: Document{Section: "S", Content: "c"}}
	}
	require.NoError(t, store.Upsert(ctx, vectors))
	require.NoError(t, store.SetVersion(ctx, "v1"))

	upserts := fake.requests["/vectors/upsert"]
	require.Len(t, upserts, 3)
	assert.Len(t, upserts[0]["vectors"], 100)
	assert.Len(t, upserts[1]["vectors"], 50)

	marker := upserts[2]["vectors"].([]any)[0].(map[string]any)
	assert.Equal(t, "corpus-version", marker["id"])
	assert.Equal(t, []any{1.0, 0.0, 0.0}, marker["values"])
	assert.Equal(t, "v1", marker["metadata"].(map[string]any)["version"])

	first := upserts[0]["vectors"].([]any)[0].(map[string]any)
	assert.Equal(t, "document", first["metadata"].(map[string]any)["kind"])

	for _, k := range fake.apiKeys {
		assert.Equal(t, "pc-key", k)
	}
}

func TestPineconeStore_QueryCountVersionReset(t *testing.T) {
	store, fake := newTestPinecone(t)
	ctx := context.Background()

	matches, err := store.Query(ctx, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, Document{ID: "b", Section: "RAIN", Content: "Pack an umbrella."}, matches[0].Document)
	assert.InDelta(t, 0.71, matches[0].Score, 1e-9)

	q := fake.requests["/query"][0]
	assert.EqualValues(t, 2, q["topK"])
	assert.Equal(t, true, q["includeMetadata"])
	assert.Equal(t, map[string]any{"kind": map[string]any{"$eq": "document"}}, q["filter"])

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v42", v)

	require.NoError(t, store.Reset(ctx))
	assert.Equal(t, true, fake.requests["/vectors/delete"][0]["deleteAll"])
}

func TestPineconeStore_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	doer := httpretry.New(srv.Client())
	doer.InitialDelay = time.Millisecond
	store, err := NewPineconeStore(srv.URL, "wrong", doer)
	require.NoError(t, err)

	_, err = store.Query(context.Background(), []float32{1}, 4)
	var statusErr *httpretry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestNewPineconeStore_AddsScheme(t *testing.T) {
	store, err := NewPineconeStore("wardrobe-abc123.svc.pinecone.io", "k", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://wardrobe-abc123.svc.pinecone.io", store.host)

	_, err = NewPineconeStore("", "k", nil)
	assert.Error(t, err)
}
