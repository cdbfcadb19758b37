package contentstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udemarket/markethub/common"
)

func TestHTTPClientPutAndGet(t *testing.T) {
	blobs := map[string][]byte{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/blobs":
			data, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			blobs["ref-1"] = data
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"ref":"ref-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/blobs/ref-1":
			w.Write(blobs["ref-1"])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "https://gateway.example.com/", WithToken("secret"))
	ctx := context.Background()

	ref, err := client.Put(ctx, []byte("asset bytes"))
	assert.NoError(t, err)
	assert.Equal(t, "ref-1", ref)

	data, err := client.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, []byte("asset bytes"), data)

	assert.Equal(t, "https://gateway.example.com/ref-1", client.GatewayURL(ref))

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHTTPClientMarksServerErrorsTransient(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.URL)
	ctx := context.Background()

	_, err := client.Put(ctx, []byte("asset bytes"))
	assert.ErrorIs(t, err, common.ErrTransient)
	_, err = client.Get(ctx, "ref-1")
	assert.ErrorIs(t, err, common.ErrTransient)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientRejectsBadResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blobs":
			// 200 but no ref in the body
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, server.URL)
	ctx := context.Background()

	_, err := client.Put(ctx, []byte("asset bytes"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrTransient)

	_, err = client.Get(ctx, "ref-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrTransient)
}
