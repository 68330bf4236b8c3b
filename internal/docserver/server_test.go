package docserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kanstore/internal/middleware"
	"github.com/roach88/kanstore/internal/person"
	"github.com/roach88/kanstore/internal/reactive"
	"github.com/roach88/kanstore/internal/storage"
)

func startServer(t *testing.T, opts ...Option) (*httptest.Server, *storage.Memory, *Server) {
	t.Helper()
	mem := storage.NewMemory()
	s := New(mem, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, mem, s
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestServer_MissingRecordIsNull(t *testing.T) {
	ts, _, _ := startServer(t)

	status, body := do(t, http.MethodGet, ts.URL+"/task-store.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)
}

func TestServer_PutGetDelete(t *testing.T) {
	ts, mem, _ := startServer(t)

	status, body := do(t, http.MethodPut, ts.URL+"/person-storage.json", `{"firstName":"Ada"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"firstName":"Ada"}`, body)

	status, body = do(t, http.MethodGet, ts.URL+"/person-storage.json", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, `{"firstName":"Ada"}`, body)

	status, _ = do(t, http.MethodDelete, ts.URL+"/person-storage.json", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, mem.Len())
}

func TestServer_RejectsInvalidJSON(t *testing.T) {
	ts, mem, _ := startServer(t)

	status, _ := do(t, http.MethodPut, ts.URL+"/person-storage.json", `{"firstName":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 0, mem.Len())
}

func TestServer_RequiresJSONSuffix(t *testing.T) {
	ts, _, _ := startServer(t)

	status, _ := do(t, http.MethodGet, ts.URL+"/person-storage", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_Auth(t *testing.T) {
	secret := []byte("s3cret")
	ts, _, _ := startServer(t, WithAuthSecret(secret))

	status, _ := do(t, http.MethodGet, ts.URL+"/person-storage.json", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	token, err := (&storage.JWTTokenSource{Secret: secret, Subject: "test"}).Token(context.Background())
	require.NoError(t, err)
	status, body := do(t, http.MethodGet, ts.URL+"/person-storage.json?auth="+token, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)
}

func TestServer_WithHTTPAdapter(t *testing.T) {
	secret := []byte("s3cret")
	ts, _, _ := startServer(t, WithAuthSecret(secret))
	ctx := context.Background()

	adapter, err := storage.NewHTTP(ts.URL, storage.WithTokenSource(&storage.JWTTokenSource{
		Secret:  secret,
		Subject: "kanstore",
	}))
	require.NoError(t, err)
	defer adapter.Close()

	_, ok, err := adapter.GetItem(ctx, "wedding-store")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, adapter.SetItem(ctx, "wedding-store", `{"guestCount":3}`))
	raw, ok, err := adapter.GetItem(ctx, "wedding-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"guestCount":3}`, raw)

	assert.ErrorIs(t, adapter.RemoveItem(ctx, "wedding-store"), storage.ErrNotImplemented)
}

func TestServer_PersistThroughAdapter(t *testing.T) {
	ts, mem, _ := startServer(t)
	ctx := context.Background()

	adapter, err := storage.NewHTTP(ts.URL)
	require.NoError(t, err)
	p := middleware.Persist(middleware.PersistConfig[person.State, person.State]{
		Name:    person.StoreName,
		Storage: adapter,
	})
	defer p.Close()

	pp := person.New(person.NewStore(person.State{}, []reactive.Middleware[person.State]{p}))
	require.NoError(t, pp.SetFirstName("Ada"))
	require.NoError(t, p.Flush(ctx))

	raw, ok, err := mem.GetItem(ctx, person.StoreName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"firstName":"Ada","lastName":""}`, raw)
}

func TestServer_DevtoolsEndpoint(t *testing.T) {
	ts, _, s := startServer(t, WithActionBuffer(2))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/devtools"
	inspector, err := middleware.DialInspector(context.Background(), url, nil)
	require.NoError(t, err)
	defer inspector.Close()

	pp := person.New(person.NewStore(person.State{}, []reactive.Middleware[person.State]{
		middleware.Devtools[person.State](inspector, person.StoreName),
	}))
	require.NoError(t, pp.SetFirstName("Ada"))
	require.NoError(t, pp.SetLastName("Lovelace"))

	require.Eventually(t, func() bool {
		actions := s.Actions()
		return len(actions) == 2 && actions[1].Type == person.ActionSetLastName
	}, 2*time.Second, 10*time.Millisecond)

	actions := s.Actions()
	assert.Equal(t, person.ActionSetFirstName, actions[0].Type, "oldest action dropped")

	status, body := do(t, http.MethodGet, ts.URL+"/devtools/actions", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"type":"setLastName"`)
}

func TestServer_ActionBufferBounds(t *testing.T) {
	tests := []struct {
		name string
		size int
		want []int64
	}{
		{"keeps newest", 2, []int64{2, 3}},
		{"zero keeps none", 0, nil},
		{"negative keeps none", -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(storage.NewMemory(), WithActionBuffer(tt.size))
			for seq := int64(1); seq <= 3; seq++ {
				assert.NotPanics(t, func() {
					s.record(middleware.Action{Store: "person-storage", Type: "setFirstName", Seq: seq})
				})
			}

			var got []int64
			for _, a := range s.Actions() {
				got = append(got, a.Seq)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
