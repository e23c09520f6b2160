package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTEIEmbedQuery(t *testing.T) {
	var gotReq teiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`[[0.1, 0.2, 0.3]]`))
	}))
	defer srv.Close()

	e := NewTEIEmbedder(srv.URL, 3, 5*time.Second)
	vec, err := e.EmbedQuery(context.Background(), "what is the levy rate?")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "what is the levy rate?", gotReq.Inputs)
	assert.True(t, gotReq.Normalize)
	assert.Equal(t, 3, e.Dimension())
}

func TestTEIEmbedQueryRejectsEmptyText(t *testing.T) {
	e := NewTEIEmbedder("http://localhost:0", 3, time.Second)

	_, err := e.EmbedQuery(context.Background(), "")
	assert.Error(t, err)
}

func TestTEIEmbedQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model overloaded"))
	}))
	defer srv.Close()

	e := NewTEIEmbedder(srv.URL, 3, time.Second)
	_, err := e.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestTEIEmbedQueryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	e := NewTEIEmbedder(srv.URL, 3, time.Second)
	_, err := e.EmbedQuery(context.Background(), "q")
	assert.Error(t, err)
}

func TestTEIEmbedQueryNoVectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	e := NewTEIEmbedder(srv.URL, 3, time.Second)
	_, err := e.EmbedQuery(context.Background(), "q")
	assert.Error(t, err)
}
