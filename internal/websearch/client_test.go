package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok", r.Header.Get("X-Subscription-Token"))
		require.Equal(t, "go generics", r.URL.Query().Get("q"))
		require.Equal(t, "3", r.URL.Query().Get("count"))
		w.Write([]byte(`{"web": {"results": [
			{"title": "A", "url": "https://a", "description": "da"},
			{"title": "B", "url": "https://b", "description": "db"}
		]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	results, err := c.Search(context.Background(), "go generics", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "A", results[0].Title)
}

func TestSearchTruncatesToMax(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"web": {"results": [
			{"title": "A"}, {"title": "B"}, {"title": "C"}
		]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	results, err := c.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.Search(context.Background(), "q", 5)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}
