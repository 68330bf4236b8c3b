package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// docStore is a minimal fake of the remote document store.
type docStore struct {
	mu       sync.Mutex
	records  map[string]string
	requests []string
	status   int
}

func newDocStore() *docStore {
	return &docStore{records: map[string]string{}}
}

func (d *docStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requests = append(d.requests, r.Method+" "+r.URL.RequestURI())
	if d.status != 0 {
		w.WriteHeader(d.status)
		return
	}

	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/db/"), ".json")
	switch r.Method {
	case http.MethodGet:
		v, ok := d.records[key]
		if !ok {
			_, _ = io.WriteString(w, "null")
			return
		}
		_, _ = io.WriteString(w, v)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		d.records[key] = string(body)
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newHTTPBackend(t *testing.T, h http.Handler, opts ...HTTPOption) *HTTP {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend, err := NewHTTP(srv.URL+"/db/", opts...)
	require.NoError(t, err)
	return backend
}

func TestHTTP_SetThenGet(t *testing.T) {
	docs := newDocStore()
	backend := newHTTPBackend(t, docs)
	ctx := context.Background()

	require.NoError(t, backend.SetItem(ctx, "person-storage", `{"firstName":"Ana"}`))

	value, ok, err := backend.GetItem(ctx, "person-storage")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"firstName":"Ana"}`, value)

	assert.Equal(t, []string{
		"PUT /db/person-storage.json",
		"GET /db/person-storage.json",
	}, docs.requests)
}

func TestHTTP_NullBodyIsAbsent(t *testing.T) {
	backend := newHTTPBackend(t, newDocStore())

	value, ok, err := backend.GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestHTTP_NotFoundIsAbsent(t *testing.T) {
	backend := newHTTPBackend(t, http.NotFoundHandler())

	_, ok, err := backend.GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHTTP_ServerErrorIsAdapterError(t *testing.T) {
	docs := newDocStore()
	docs.status = http.StatusInternalServerError
	backend := newHTTPBackend(t, docs)
	ctx := context.Background()

	_, _, err := backend.GetItem(ctx, "task-store")
	require.Error(t, err)

	var ae *AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "get", ae.Op)
	assert.Equal(t, "task-store", ae.Key)
	assert.Equal(t, http.StatusInternalServerError, ae.StatusCode)

	err = backend.SetItem(ctx, "task-store", `{}`)
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "set", ae.Op)
}

func TestHTTP_MalformedBody(t *testing.T) {
	backend := newHTTPBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	}))

	_, _, err := backend.GetItem(context.Background(), "task-store")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.True(t, IsAdapterError(err))
}

func TestHTTP_SetRejectsInvalidJSON(t *testing.T) {
	docs := newDocStore()
	backend := newHTTPBackend(t, docs)

	err := backend.SetItem(context.Background(), "k", "not json")
	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.Empty(t, docs.requests)
}

func TestHTTP_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(newDocStore())
	srv.Close()

	backend, err := NewHTTP(srv.URL)
	require.NoError(t, err)

	_, _, err = backend.GetItem(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, IsAdapterError(err))
}

func TestHTTP_RemoveNotImplemented(t *testing.T) {
	docs := newDocStore()
	backend := newHTTPBackend(t, docs)

	err := backend.RemoveItem(context.Background(), "task-store")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Empty(t, docs.requests)
}

func TestHTTP_TokenSourceAddsAuth(t *testing.T) {
	docs := newDocStore()
	backend := newHTTPBackend(t, docs, WithTokenSource(StaticToken("s3cret")))

	_, _, err := backend.GetItem(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /db/k.json?auth=s3cret"}, docs.requests)
}

func TestHTTP_ContextCanceled(t *testing.T) {
	backend := newHTTPBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := backend.GetItem(ctx, "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTP_RejectsBadScheme(t *testing.T) {
	_, err := NewHTTP("ftp://example.com")
	require.Error(t, err)
}
