package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":"a1","name":"My App","appId":"com.example.app"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var app App
	err := c.do(context.Background(), http.MethodGet, "/api/apps/a1", nil, &app)
	require.NoError(t, err)
	assert.Equal(t, "a1", app.ID)
	assert.Equal(t, "My App", app.Name)
}

func TestDecodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"app not found"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	err := c.do(context.Background(), http.MethodGet, "/api/apps/missing", nil, nil)
	require.Error(t, err)

	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "app not found", apiErr.Message)
}

func TestDecodeStatusFallback(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"failure without error object", http.StatusBadGateway, `{"success":false}`, "HTTP_502"},
		{"non-json body", http.StatusInternalServerError, `<html>boom</html>`, "HTTP_500"},
		{"empty body", http.StatusServiceUnavailable, ``, "HTTP_503"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL).do(context.Background(), http.MethodGet, "/x", nil, nil)
			require.Error(t, err)
			apiErr, ok := err.(*Error)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestTimeoutClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := New(srv.URL).do(ctx, http.MethodGet, "/slow", nil, nil)
	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, CodeTimeout, apiErr.Code)
}

func TestNetworkErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	err := New(srv.URL).do(context.Background(), http.MethodGet, "/x", nil, nil)
	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, CodeNetworkError, apiErr.Code)
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetAccessToken("tok-123")
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/x", nil, nil))
	assert.Equal(t, "Bearer tok-123", got)

	c.ClearTokens()
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/x", nil, nil))
	assert.Empty(t, got)
}

func TestTokenResumesFromStore(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Save(&Credentials{AccessToken: "stored-token"}))

	c := New("http://localhost:9", WithCredentialStore(store))
	assert.Equal(t, "stored-token", c.token())
}

func TestListParamsQuery(t *testing.T) {
	tests := []struct {
		name   string
		params ListParams
		want   map[string]string
		absent []string
	}{
		{
			name:   "zero values produce empty query",
			params: ListParams{},
			absent: []string{"page", "limit", "search", "status", "sortBy", "sortOrder"},
		},
		{
			name:   "short search is dropped",
			params: ListParams{Page: 2, Search: "a"},
			want:   map[string]string{"page": "2"},
			absent: []string{"search"},
		},
		{
			name:   "two character search is kept",
			params: ListParams{Search: "ab"},
			want:   map[string]string{"search": "ab"},
		},
		{
			name:   "all fields",
			params: ListParams{Page: 3, Limit: 50, Search: "alpha", Status: "active", SortBy: "name", SortOrder: "asc"},
			want: map[string]string{
				"page": "3", "limit": "50", "search": "alpha",
				"status": "active", "sortBy": "name", "sortOrder": "asc",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := tt.params.query()
			for key, want := range tt.want {
				assert.Equal(t, want, values.Get(key))
			}
			for _, key := range tt.absent {
				assert.False(t, values.Has(key), "unexpected %s", key)
			}
		})
	}
}

func TestDownloadURLHandling(t *testing.T) {
	var apiAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = r.Header.Get("Authorization")
		w.Write([]byte("api bytes"))
	}))
	defer api.Close()

	var cdnAuth string
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cdnAuth = r.Header.Get("Authorization")
		w.Write([]byte("cdn bytes"))
	}))
	defer cdn.Close()

	c := New(api.URL)
	c.SetAccessToken("tok-123")

	t.Run("relative path goes to the API with the token", func(t *testing.T) {
		data, err := c.Download(context.Background(), "/uploads/bundle.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "api bytes", string(data))
		assert.Equal(t, "Bearer tok-123", apiAuth)
	})

	t.Run("absolute API URL keeps the token", func(t *testing.T) {
		data, err := c.Download(context.Background(), api.URL+"/uploads/bundle.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "api bytes", string(data))
		assert.Equal(t, "Bearer tok-123", apiAuth)
	})

	t.Run("external URL is fetched directly without the token", func(t *testing.T) {
		data, err := c.Download(context.Background(), cdn.URL+"/bundle.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "cdn bytes", string(data))
		assert.Empty(t, cdnAuth)
	})

	t.Run("non-2xx surfaces as HTTP_<status>", func(t *testing.T) {
		missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer missing.Close()

		_, err := New(missing.URL).Download(context.Background(), "/gone")
		require.Error(t, err)
		assert.Equal(t, "HTTP_404", err.(*Error).Code)
	})
}

func TestValidateArtifact(t *testing.T) {
	assert.NoError(t, ValidateArtifact("bundle.tar.gz", 1024))
	assert.NoError(t, ValidateArtifact("BUNDLE.ZIP", MaxArtifactSize))

	err := ValidateArtifact("app.apk", 1024)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", err.(*Error).Code)

	err = ValidateArtifact("bundle.tgz", MaxArtifactSize+1)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", err.(*Error).Code)
}
