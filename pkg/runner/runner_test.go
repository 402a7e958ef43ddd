package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/collection/collectiontest"
	"github.com/blackcoderx/opencollection/pkg/engine"
)

// capturedRequest is what the test server saw.
type capturedRequest struct {
	Method      string
	Path        string
	Query       string
	Header      http.Header
	ContentType string
	Body        string
	Form        map[string]string
	Files       map[string]string
}

type recorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *recorder) last(t *testing.T) capturedRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured := capturedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			Header:      r.Header.Clone(),
			ContentType: r.Header.Get("Content-Type"),
		}
		if strings.HasPrefix(captured.ContentType, "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			captured.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				captured.Form[k] = v[0]
			}
			captured.Files = map[string]string{}
			for k, fh := range r.MultipartForm.File {
				f, err := fh[0].Open()
				require.NoError(t, err)
				data, _ := io.ReadAll(f)
				f.Close()
				captured.Files[k] = fh[0].Filename + ":" + string(data)
			}
		} else {
			data, _ := io.ReadAll(r.Body)
			captured.Body = string(data)
		}

		rec.mu.Lock()
		rec.requests = append(rec.requests, captured)
		rec.mu.Unlock()

		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":42,"name":"Ada","tags":["a","b"]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func str(name, value string) collection.Variable {
	return collection.Variable{Name: name, Value: collection.VariableValue{Data: value}}
}

// suite builds a collection pointing at baseURL through the "local"
// environment.
func suite(baseURL string, base collection.Config, requests ...*collection.HTTPRequest) (*collection.Collection, []collection.ItemID) {
	b := collectiontest.New("smoke").
		Base(base).
		Environment(collection.Environment{ID: "local", Name: "local", Variables: []collection.Variable{
			str("baseUrl", baseURL),
			str("token", "secret-token"),
			str("user", "ada"),
		}})
	ids := make([]collection.ItemID, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, b.HTTP("", req.Name, req))
	}
	return b.Build(), ids
}

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := New(engine.New(nil), nil, opts)
	require.NoError(t, err)
	return r
}

func TestRun_AuthVariants(t *testing.T) {
	srv, rec := newServer(t)

	tests := []struct {
		name  string
		auth  collection.Auth
		check func(t *testing.T, got capturedRequest)
	}{
		{
			name: "bearer",
			auth: collection.BearerAuth{Token: "{{token}}"},
			check: func(t *testing.T, got capturedRequest) {
				assert.Equal(t, "Bearer secret-token", got.Header.Get("Authorization"))
			},
		},
		{
			name: "basic",
			auth: collection.BasicAuth{Username: "{{user}}", Password: "pw"},
			check: func(t *testing.T, got capturedRequest) {
				assert.Equal(t, "Basic YWRhOnB3", got.Header.Get("Authorization"))
			},
		},
		{
			name: "apikey header",
			auth: collection.APIKeyAuth{Key: "X-Api-Key", Value: "{{token}}", Placement: collection.PlacementHeader},
			check: func(t *testing.T, got capturedRequest) {
				assert.Equal(t, "secret-token", got.Header.Get("X-Api-Key"))
				assert.Equal(t, "q=x", got.Query)
			},
		},
		{
			name: "apikey query",
			auth: collection.APIKeyAuth{Key: "api_key", Value: "{{token}}", Placement: collection.PlacementQuery},
			check: func(t *testing.T, got capturedRequest) {
				assert.Equal(t, "api_key=secret-token&q=x", got.Query)
				assert.Empty(t, got.Header.Get("Authorization"))
			},
		},
		{
			name: "none",
			auth: collection.NoAuth{},
			check: func(t *testing.T, got capturedRequest) {
				assert.Empty(t, got.Header.Get("Authorization"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ids := suite(srv.URL, collection.Config{Auth: tt.auth}, &collection.HTTPRequest{
				Meta:   collection.Meta{Name: "get"},
				Method: "GET",
				URL:    "{{baseUrl}}/users",
				Params: []collection.Param{{Name: "q", Value: "x", Type: collection.ParamQuery}},
			})
			result, err := newRunner(t, Options{}).Run(context.Background(), "auth", c, ids, "local")
			require.NoError(t, err)
			require.Len(t, result.Tests, 1)
			assert.True(t, result.Tests[0].Passed, result.Tests[0].Error)
			tt.check(t, rec.last(t))
		})
	}
}

func TestRun_UnsupportedAuth(t *testing.T) {
	srv, rec := newServer(t)
	c, ids := suite(srv.URL, collection.Config{Auth: collection.DigestAuth{Username: "u", Password: "p"}},
		&collection.HTTPRequest{Meta: collection.Meta{Name: "get"}, Method: "GET", URL: "{{baseUrl}}/users"})

	result, err := newRunner(t, Options{}).Run(context.Background(), "digest", c, ids, "local")
	require.NoError(t, err)
	require.Len(t, result.Tests, 1)
	assert.False(t, result.Tests[0].Passed)
	assert.Contains(t, result.Tests[0].Error, "digest")
	assert.Nil(t, result.Tests[0].Response())
	assert.Zero(t, rec.count())
}

func TestRun_Bodies(t *testing.T) {
	srv, rec := newServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatar.png"), []byte("PNG"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload.bin"), []byte("raw-bytes"), 0644))

	t.Run("json", func(t *testing.T) {
		c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
			Meta: collection.Meta{Name: "create"}, Method: "POST", URL: "{{baseUrl}}/users",
			Body: collection.RawBody{Kind: collection.BodyJSON, Data: `{"name":"{{user}}"}`},
		})
		_, err := newRunner(t, Options{BaseDir: dir}).Run(context.Background(), "json", c, ids, "local")
		require.NoError(t, err)
		got := rec.last(t)
		assert.Equal(t, "application/json", got.ContentType)
		assert.Equal(t, `{"name":"ada"}`, got.Body)
	})

	t.Run("explicit content type wins over raw default", func(t *testing.T) {
		c, ids := suite(srv.URL, collection.Config{
			Headers: []collection.Header{{Name: "Content-Type", Value: "application/vnd.api+json"}},
		}, &collection.HTTPRequest{
			Meta: collection.Meta{Name: "create"}, Method: "POST", URL: "{{baseUrl}}/users",
			Body: collection.RawBody{Kind: collection.BodyJSON, Data: `{}`},
		})
		_, err := newRunner(t, Options{BaseDir: dir}).Run(context.Background(), "json", c, ids, "local")
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.api+json", rec.last(t).ContentType)
	})

	t.Run("form urlencoded", func(t *testing.T) {
		c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
			Meta: collection.Meta{Name: "login"}, Method: "POST", URL: "{{baseUrl}}/login",
			Body: collection.FormBody{Kind: collection.BodyFormURLEncoded, Fields: []collection.FormField{
				{Name: "user", Value: "{{user}}"},
				{Name: "debug", Value: "1", Disabled: true},
				{Name: "scope", Value: "read write"},
			}},
		})
		_, err := newRunner(t, Options{BaseDir: dir}).Run(context.Background(), "form", c, ids, "local")
		require.NoError(t, err)
		got := rec.last(t)
		assert.Equal(t, "application/x-www-form-urlencoded", got.ContentType)
		assert.Equal(t, "scope=read+write&user=ada", got.Body)
	})

	t.Run("multipart", func(t *testing.T) {
		c, ids := suite(srv.URL, collection.Config{
			Headers: []collection.Header{{Name: "Content-Type", Value: "application/json"}},
		}, &collection.HTTPRequest{
			Meta: collection.Meta{Name: "upload"}, Method: "PUT", URL: "{{baseUrl}}/upload",
			Body: collection.FormBody{Kind: collection.BodyMultipartForm, Fields: []collection.FormField{
				{Name: "note", Value: "hello {{user}}"},
				{Name: "avatar", Value: "avatar.png", IsFile: true},
			}},
		})
		_, err := newRunner(t, Options{BaseDir: dir}).Run(context.Background(), "multipart", c, ids, "local")
		require.NoError(t, err)
		got := rec.last(t)
		assert.True(t, strings.HasPrefix(got.ContentType, "multipart/form-data; boundary="))
		assert.Equal(t, map[string]string{"note": "hello ada"}, got.Form)
		assert.Equal(t, map[string]string{"avatar": "avatar.png:PNG"}, got.Files)
	})

	t.Run("selected file", func(t *testing.T) {
		c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
			Meta: collection.Meta{Name: "raw"}, Method: "POST", URL: "{{baseUrl}}/raw",
			Body: collection.FileBody{Files: []collection.FileEntry{
				{FilePath: "avatar.png"},
				{FilePath: "payload.bin", Selected: true},
			}},
		})
		_, err := newRunner(t, Options{BaseDir: dir}).Run(context.Background(), "file", c, ids, "local")
		require.NoError(t, err)
		got := rec.last(t)
		assert.Equal(t, "application/octet-stream", got.ContentType)
		assert.Equal(t, "raw-bytes", got.Body)
	})
}

func TestRun_Assertions(t *testing.T) {
	srv, _ := newServer(t)
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta:      collection.Meta{Name: "get user"},
		Method:    "GET",
		URL:       "{{baseUrl}}/users/42",
		Variables: []collection.Variable{str("expectedName", "Ada")},
		Assertions: []collection.Assertion{
			{Expression: "res.status", Operator: "eq", Value: "200"},
			{Expression: "response.body.name", Operator: "equals", Value: "{{expectedName}}"},
			{Expression: "response.body.tags.length", Operator: "gte", Value: "2"},
			{Expression: "response.headers.content-type", Operator: "contains", Value: "json"},
			{Expression: "response.body.id", Operator: "equals", Value: "7", Disabled: true},
		},
	})

	result, err := newRunner(t, Options{}).Run(context.Background(), "assertions", c, ids, "local")
	require.NoError(t, err)
	require.Len(t, result.Tests, 1)
	test := result.Tests[0]
	assert.True(t, test.Passed, test.Error)
	assert.Equal(t, http.StatusOK, test.StatusCode)
	require.Len(t, test.Assertions, 4)
	assert.Equal(t, "Ada", test.Assertions[1].Expected)
	for _, a := range test.Assertions {
		assert.True(t, a.Passed, a.Expression)
	}
	assert.Equal(t, 1, result.Passed)
	assert.Zero(t, result.Failed)

	require.NotNil(t, test.Response())
	assert.Contains(t, test.Response().FormatResponse(), "Status: 200 OK")
}

func TestRun_OnFailure(t *testing.T) {
	srv, rec := newServer(t)
	requests := func() []*collection.HTTPRequest {
		ok := []collection.Assertion{{Expression: "response.status", Operator: "equals", Value: "200"}}
		return []*collection.HTTPRequest{
			{Meta: collection.Meta{Name: "first"}, Method: "GET", URL: "{{baseUrl}}/first", Assertions: ok},
			{Meta: collection.Meta{Name: "broken"}, Method: "GET", URL: "{{baseUrl}}/missing", Assertions: ok},
			{Meta: collection.Meta{Name: "last"}, Method: "GET", URL: "{{baseUrl}}/last", Assertions: ok},
		}
	}

	tests := []struct {
		name      string
		onFailure string
		wantTests int
		wantSent  int
		wantPass  int
	}{
		{name: "default stops", onFailure: "", wantTests: 2, wantSent: 2, wantPass: 1},
		{name: "stop", onFailure: OnFailureStop, wantTests: 2, wantSent: 2, wantPass: 1},
		{name: "continue", onFailure: OnFailureContinue, wantTests: 3, wantSent: 3, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := rec.count()
			c, ids := suite(srv.URL, collection.Config{}, requests()...)
			result, err := newRunner(t, Options{OnFailure: tt.onFailure}).Run(context.Background(), "policy", c, ids, "local")
			require.NoError(t, err)

			assert.Equal(t, 3, result.TotalTests)
			assert.Len(t, result.Tests, tt.wantTests)
			assert.Equal(t, tt.wantPass, result.Passed)
			assert.Equal(t, 1, result.Failed)
			assert.Equal(t, tt.wantSent, rec.count()-before)

			broken := result.Tests[1]
			assert.False(t, broken.Passed)
			assert.Equal(t, http.StatusNotFound, broken.StatusCode)
			assert.Equal(t, "Assertion failed: response.status", broken.Error)
			assert.Equal(t, 404, broken.Assertions[0].Actual)
		})
	}
}

func TestNew_InvalidOnFailure(t *testing.T) {
	_, err := New(engine.New(nil), nil, Options{OnFailure: "retry"})
	assert.Error(t, err)
}

func TestRun_ResolutionErrorSendsNothing(t *testing.T) {
	srv, rec := newServer(t)
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta: collection.Meta{Name: "get"}, Method: "GET", URL: "{{baseUrl}}/users",
	})

	_, err := newRunner(t, Options{}).Run(context.Background(), "env", c, ids, "staging")
	assert.ErrorIs(t, err, engine.ErrEnvironmentNotFound)
	assert.Zero(t, rec.count())
}

func TestRun_CanceledContext(t *testing.T) {
	srv, rec := newServer(t)
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta: collection.Meta{Name: "get"}, Method: "GET", URL: "{{baseUrl}}/users",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, Options{Rate: 5}).Run(ctx, "canceled", c, ids, "local")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec.count())
}

func TestRun_UnresolvedNamesAreRecorded(t *testing.T) {
	srv, _ := newServer(t)
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta: collection.Meta{Name: "get"}, Method: "GET", URL: "{{baseUrl}}/users/{{userId}}",
	})

	result, err := newRunner(t, Options{}).Run(context.Background(), "unresolved", c, ids, "local")
	require.NoError(t, err)
	assert.Equal(t, []string{"userId"}, result.Tests[0].Unresolved)
	assert.True(t, strings.HasSuffix(result.Tests[0].URL, "/users/{{userId}}"))
}

func TestRun_SavesResults(t *testing.T) {
	srv, _ := newServer(t)
	dir := filepath.Join(t.TempDir(), "results")
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta: collection.Meta{Name: "get"}, Method: "GET", URL: "{{baseUrl}}/users",
	})

	result, err := newRunner(t, Options{ResultsDir: dir}).Run(context.Background(), "Smoke Suite", c, ids, "local")
	require.NoError(t, err)
	require.NotEmpty(t, result.ResultsFile)
	assert.Equal(t, dir, filepath.Dir(result.ResultsFile))
	assert.True(t, strings.HasPrefix(filepath.Base(result.ResultsFile), "smoke-suite-"))

	data, err := os.ReadFile(result.ResultsFile)
	require.NoError(t, err)
	var saved SuiteResult
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "Smoke Suite", saved.Name)
	assert.Equal(t, "local", saved.Environment)
	assert.Equal(t, 1, saved.TotalTests)
	require.Len(t, saved.Tests, 1)
	assert.Equal(t, "GET", saved.Tests[0].Method)
}

func TestResponse_FormatResponse(t *testing.T) {
	resp := &Response{
		Status:  "200 OK",
		Headers: map[string]string{"X-B": "2", "Content-Type": "application/json"},
		Body:    `{"a":1}`,
	}
	assert.Equal(t, "Status: 200 OK (0ms)\n\nHeaders:\n  Content-Type: application/json\n  X-B: 2\n\nBody:\n{\n  \"a\": 1\n}", resp.FormatResponse())
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Not Found", statusText("404 Not Found"))
	assert.Equal(t, "teapot", statusText("teapot"))
}

func TestClient_Path(t *testing.T) {
	base := t.TempDir()
	c := NewClient(0, base)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "relative", path: "files/a.png", want: filepath.Join(base, "files", "a.png")},
		{name: "cleaned inside", path: "files/../a.png", want: filepath.Join(base, "a.png")},
		{name: "absolute inside", path: filepath.Join(base, "a.png"), want: filepath.Join(base, "a.png")},
		{name: "parent escape", path: "../secret.txt", wantErr: true},
		{name: "absolute outside", path: filepath.Join(filepath.Dir(base), "other", "a.png"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.path(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutsideBaseDir)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	unconfined, err := NewClient(0, "").path("../anything")
	require.NoError(t, err)
	assert.Equal(t, "../anything", unconfined)
}

func TestRun_FileOutsideBaseDir(t *testing.T) {
	srv, rec := newServer(t)
	c, ids := suite(srv.URL, collection.Config{}, &collection.HTTPRequest{
		Meta: collection.Meta{Name: "upload"}, Method: "POST", URL: "{{baseUrl}}/raw",
		Body: collection.FileBody{Files: []collection.FileEntry{{FilePath: "../../etc/passwd", Selected: true}}},
	})

	result, err := newRunner(t, Options{BaseDir: t.TempDir()}).Run(context.Background(), "escape", c, ids, "local")
	require.NoError(t, err)
	assert.False(t, result.Tests[0].Passed)
	assert.Contains(t, result.Tests[0].Error, ErrOutsideBaseDir.Error())
	assert.Zero(t, rec.count())
}
