package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"benchtop/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu    sync.Mutex
	hits  map[string]int
	token string
	srv   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{hits: make(map[string]int), token: "s3cret"}
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/repos/octo/demo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"full_name": "octo/demo", "default_branch": "main", "stargazers_count": 7})
	})
	mux.HandleFunc("/repos/octo/demo/contents/", func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/repos/octo/demo/contents/") {
		case "":
			writeJSON(w, []map[string]any{
				{"name": "docs", "path": "docs", "type": "dir"},
				{"name": "README.md", "path": "README.md", "type": "file", "size": 12},
			})
		case "README.md":
			content := base64.StdEncoding.EncodeToString([]byte("# Demo\nref=" + r.URL.Query().Get("ref")))
			// GitHub wraps base64 at 60 columns.
			wrapped := content[:10] + "\n" + content[10:]
			writeJSON(w, map[string]any{"name": "README.md", "path": "README.md", "type": "file", "encoding": "base64", "content": wrapped, "sha": "blob1"})
		case "big.bin":
			writeJSON(w, map[string]any{"name": "big.bin", "path": "big.bin", "type": "file", "encoding": "none", "download_url": f.srv.URL + "/raw/big.bin"})
		case "docs":
			writeJSON(w, []map[string]any{{"name": "a.md", "path": "docs/a.md", "type": "file"}})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	})
	mux.HandleFunc("/raw/big.bin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0, 1, 2, 3})
	})
	mux.HandleFunc("/repos/octo/demo/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("path") != "README.md" || r.URL.Query().Get("per_page") != "100" {
			t.Errorf("unexpected commit query %s", r.URL.RawQuery)
		}
		writeJSON(w, []map[string]any{
			{"sha": "aaaaaaaaaa", "commit": map[string]any{"message": "first line\n\nbody", "author": map[string]any{"name": "Ann", "date": "2024-01-02T03:04:05Z"}}},
			{"sha": "bbbbbbbbbb", "commit": map[string]any{"message": "second"}, "author": map[string]any{"login": "bob"}},
		})
	})
	mux.HandleFunc("/repos/octo/demo/commits/aaaaaaaaaa", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"sha":   "aaaaaaaaaa",
			"stats": map[string]any{"additions": 3, "deletions": 1, "total": 4},
			"files": []map[string]any{{"filename": "README.md", "status": "modified", "additions": 3, "deletions": 1}},
		})
	})
	mux.HandleFunc("/repos/octo/demo/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("recursive") != "1" {
			t.Errorf("tree must be recursive")
		}
		writeJSON(w, map[string]any{"sha": "t1", "tree": []map[string]any{
			{"path": "docs", "type": "tree"},
			{"path": "docs/a.md", "type": "blob", "size": 3},
			{"path": "README.md", "type": "blob", "size": 12},
		}})
	})
	mux.HandleFunc("/repos/octo/limited", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})
	mux.HandleFunc("/repos/octo/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	})
	mux.HandleFunc("/repos/octo/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer "+f.token {
			t.Errorf("missing bearer token, got %q", got)
		}
		f.mu.Lock()
		f.hits[r.URL.String()]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) count(u string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[u]
}

func newTestClient(f *fakeAPI) *Client {
	return New(Options{BaseURL: f.srv.URL + "/", Token: f.token})
}

var demo = RepoRef{Owner: "octo", Name: "demo"}

func TestClient_RepositoryAndCache(t *testing.T) {
	api := newFakeAPI(t)
	c := newTestClient(api)
	ctx := context.Background()

	repo, err := c.Repository(ctx, demo)
	require.NoError(t, err)
	assert.Equal(t, "main", repo.DefaultBranch)
	assert.Equal(t, 7, repo.Stars)

	_, err = c.Repository(ctx, demo)
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("/repos/octo/demo"), "second call should be cached")
	assert.Equal(t, 4999, c.RateLimit().Remaining)

	c.ClearCache()
	assert.Equal(t, 0, c.CacheLen())
	_, err = c.Repository(ctx, demo)
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("/repos/octo/demo"))
}

func TestClient_Contents(t *testing.T) {
	c := newTestClient(newFakeAPI(t))
	ctx := context.Background()

	root, err := c.Contents(ctx, demo, "", "")
	require.NoError(t, err)
	require.Len(t, root, 2)
	assert.True(t, root[0].IsDir())

	single, err := c.Contents(ctx, demo, "README.md", "")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, "README.md", single[0].Path)

	_, err = c.Contents(ctx, demo, "nope", "")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)
	assert.Equal(t, "not found: Not Found", errors.Short(err))
}

func TestClient_FileDecodesBase64(t *testing.T) {
	c := newTestClient(newFakeAPI(t))
	f, err := c.File(context.Background(), demo, "README.md", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "# Demo\nref=abc123", string(f.Content))
	assert.Equal(t, "blob1", f.SHA)
	assert.Empty(t, f.Raw)

	big, err := c.File(context.Background(), demo, "big.bin", "")
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, big.Content)

	_, err = c.File(context.Background(), demo, "docs", "")
	assert.Error(t, err, "a directory is not a file")
}

func TestClient_Commits(t *testing.T) {
	c := newTestClient(newFakeAPI(t))
	ctx := context.Background()

	commits, err := c.Commits(ctx, demo, CommitQuery{Path: "README.md", PerPage: 500})
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "first line", commits[0].Title())
	assert.Equal(t, "aaaaaaa", commits[0].Short())
	assert.Equal(t, "Ann", commits[0].AuthorName())
	assert.Equal(t, "bob", commits[1].AuthorName())
	assert.Equal(t, 2024, commits[0].Date().Year())

	detail, err := c.Commit(ctx, demo, "aaaaaaaaaa")
	require.NoError(t, err)
	require.NotNil(t, detail.Stats)
	assert.Equal(t, 4, detail.Stats.Total)
	assert.Len(t, detail.Files, 1)
}

func TestClient_Tree(t *testing.T) {
	c := newTestClient(newFakeAPI(t))
	tree, err := c.Tree(context.Background(), demo, "main")
	require.NoError(t, err)
	assert.Len(t, tree.Entries, 3)
	assert.Len(t, tree.Blobs(), 2)
}

func TestClient_StatusMapping(t *testing.T) {
	c := newTestClient(newFakeAPI(t))
	ctx := context.Background()
	cases := []struct {
		repo string
		code errors.ErrorCode
	}{
		{"limited", errors.CodeRateLimited},
		{"private", errors.CodePermissionDenied},
		{"broken", errors.CodeNetwork},
		{"missing", errors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.repo, func(t *testing.T) {
			_, err := c.Repository(ctx, RepoRef{Owner: "octo", Name: tc.repo})
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.CodeOf(err), "%v", err)
		})
	}
	assert.Equal(t, 0, c.CacheLen(), "failures must not be cached")
}

func TestParseRepo(t *testing.T) {
	cases := []struct {
		in      string
		want    RepoRef
		wantErr bool
	}{
		{in: "octo/demo", want: demo},
		{in: " https://github.com/octo/demo.git ", want: demo},
		{in: "github.com/octo/demo/tree/main", want: demo},
		{in: "octo", wantErr: true},
		{in: "/demo", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRepo(tc.in)
			if tc.wantErr {
				assert.True(t, errors.IsCode(err, errors.CodeValidationError), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
