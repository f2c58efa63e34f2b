package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscribe/internal/preference"
	"docscribe/internal/types"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", WithToken("tok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequestHeaders(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, types.User{ID: "u1", Username: "ada"})
	})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)
}

func TestStatusErrorDetail(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-model-status", "Booting")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "HuggingFace endpoint unavailable"})
	})

	_, err := c.Generate(context.Background(), "p1", types.GenerateRequest{})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "HuggingFace endpoint unavailable", se.Detail)
	assert.Equal(t, "booting", se.ModelStatus)
	assert.Equal(t, http.MethodPost, se.Method)
	assert.Equal(t, "/documentation/projects/p1/generate", se.Path)
	assert.Equal(t, http.StatusServiceUnavailable, se.HTTPStatus())
	assert.True(t, IsStatus(err, 502, 503))
	assert.Equal(t, "booting", ModelStatusOf(err))
}

func TestParseDetailShapes(t *testing.T) {
	assert.Equal(t, "nope", parseDetail([]byte(`{"detail":"nope"}`)))
	assert.Equal(t, "field required; too short", parseDetail([]byte(`{"detail":[{"msg":"field required"},{"msg":"too short"}]}`)))
	assert.Equal(t, "Internal Server Error", parseDetail([]byte("Internal Server Error\n")))
	assert.Len(t, parseDetail([]byte(strings.Repeat("x", 5000))), maxDetail)
}

func TestNotFoundIs(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Preferences not found"})
	})

	_, err := c.GetPreferences(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.True(t, preference.IsNotFound(err))
}

func TestSavePreferencesFallsBackToCreate(t *testing.T) {
	var methods []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p1/preferences/", r.URL.Path)
		methods = append(methods, r.Method)
		if r.Method == http.MethodPatch {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
			return
		}
		var in preference.Preferences
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		writeJSON(w, http.StatusOK, in)
	})

	prefs := preference.Defaults()
	prefs.DirectoryExclusion.ExcludeDirs = []string{"tests"}
	out, err := c.SavePreferences(context.Background(), "p1", prefs)
	require.NoError(t, err)
	assert.Equal(t, []string{http.MethodPatch, http.MethodPost}, methods)
	assert.Equal(t, []string{"tests"}, out.DirectoryExclusion.ExcludeDirs)
}

func TestPreferencesWireFormat(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Contains(t, m, "current_Step")
		assert.Contains(t, m, "directory_exclusion")
		assert.Contains(t, m, "per_file_exclusion")
		w.Write(raw)
	})

	_, err := c.UpdatePreferences(context.Background(), "p1", preference.Defaults().WithStep(1))
	require.NoError(t, err)
}

func TestFileTreeNestedShape(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p1/files/tree", r.URL.Path)
		w.Write([]byte(`{"pkg":{"a.py":{"functions":[],"classes":[]}},"main.py":{"functions":[]}}`))
	})

	tree, err := c.FileTree(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py", "pkg/a.py"}, tree.Paths())
}

func TestListFilesNeverNil(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p1/files/all", r.URL.Path)
		w.Write([]byte(`null`))
	})

	files, err := c.ListFiles(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotNil(t, files)
}

func TestUploadFileMultipart(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p1/files/", r.URL.Path)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "a.py", hdr.Filename)
		assert.Equal(t, "def f(): pass\n", string(body))
		writeJSON(w, http.StatusOK, types.FileRecord{ID: "f1", Filename: "a.py"})
	})

	res, err := c.UploadFile(context.Background(), "p1", "src/a.py", strings.NewReader("def f(): pass\n"))
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "f1", res.Files[0].ID)
}

func TestUploadFilesSendsBaseNames(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		var names []string
		for _, hdr := range r.MultipartForm.File["files"] {
			names = append(names, hdr.Filename)
		}
		assert.ElementsMatch(t, []string{"core.py", "util.py"}, names)
		writeJSON(w, http.StatusOK, []types.FileRecord{{ID: "a"}, {ID: "b"}})
	})

	_, err := c.UploadFiles(context.Background(), "p1", map[string]io.Reader{
		"pkg/core.py":     strings.NewReader("def run(): pass\n"),
		"pkg/sub/util.py": strings.NewReader("def help(): pass\n"),
	})
	require.NoError(t, err)
}

func TestUploadZipField(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/p1/files/upload-zip", r.URL.Path)
		_, _, err := r.FormFile("zip_file")
		assert.NoError(t, err)
		writeJSON(w, http.StatusOK, map[string]any{"files": []types.FileRecord{{ID: "a"}, {ID: "b"}}})
	})

	res, err := c.UploadZip(context.Background(), "p1", "proj.zip", strings.NewReader("PK"))
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
}

func TestPlanBypassesCaches(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documentation/projects/p1/plan", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("t"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		writeJSON(w, http.StatusOK, types.DocumentationPlan{ProjectID: "p1", Format: "HTML", TotalItems: 2})
	})

	plan, err := c.Plan(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalItems)
}

func TestGenerateIgnoresClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		writeJSON(w, http.StatusOK, types.GenerateResponse{Results: []json.RawMessage{[]byte(`{}`)}, GenerationTimeSeconds: 1.5})
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithTimeout(50*time.Millisecond))

	res, err := c.Generate(context.Background(), "p1", types.GenerateRequest{BatchSize: 2})
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)

	_, err = c.ListRevisions(context.Background(), "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerateCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	c := New(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, "p1", types.GenerateRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	_, isStatus := StatusOf(err)
	assert.False(t, isStatus)
}

func TestDownloadRevisionFilename(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documentation/projects/p1/revisions/r1/download", r.URL.Path)
		w.Header().Set("Content-Disposition", `attachment; filename="documentation_p1_r1.md"`)
		w.Header().Set("Content-Type", "text/markdown")
		w.Write([]byte("# Docs"))
	})

	d, err := c.DownloadRevision(context.Background(), "p1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "documentation_p1_r1.md", d.Filename)
	assert.Equal(t, "text/markdown", d.ContentType)
	assert.Equal(t, "# Docs", string(d.Body))
}

func TestRevisionEndpoints(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/documentation/projects/p1/revisions":
			w.Write([]byte(`{"project_id":"p1","revisions":[{"id":"r2","project_id":"p1","format":"HTML","created_at":"2024-05-01T10:00:00.123456"}]}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/api/documentation/projects/p1/revisions/r2":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writeJSON(w, http.StatusOK, types.Revision{ID: "r2", Notes: body["notes"]})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	list, err := c.ListRevisions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list.Revisions, 1)
	assert.Equal(t, 2024, list.Revisions[0].CreatedAt.Year())

	rev, err := c.UpdateRevision(ctx, "p1", "r2", "first pass")
	require.NoError(t, err)
	assert.Equal(t, "first pass", rev.Notes)

	assert.NoError(t, c.DeleteRevision(ctx, "p1", "r2"))
	_, err = c.GetRevision(ctx, "p1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginStoresToken(t *testing.T) {
	var authed atomic.Bool
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var in types.Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "ada", in.Username)
			writeJSON(w, http.StatusOK, types.Token{AccessToken: "new-token", TokenType: "bearer"})
		case "/api/auth/me":
			authed.Store(r.Header.Get("Authorization") == "Bearer new-token")
			writeJSON(w, http.StatusOK, types.User{Username: "ada"})
		}
	})
	ctx := context.Background()

	_, err := c.Login(ctx, "ada", "secret")
	require.NoError(t, err)
	assert.Equal(t, "new-token", c.Token())
	_, err = c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, authed.Load())
}

func TestGithubPaths(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/github/repos":
			writeJSON(w, http.StatusOK, []types.GithubRepo{{FullName: "octo/hello", AppInstalled: true}})
		case "/api/github/repos/octo/hello/branches":
			writeJSON(w, http.StatusOK, []types.GithubBranch{{Name: "main"}})
		case "/api/github/import":
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, []any{}, in["tags"])
			writeJSON(w, http.StatusOK, types.Project{ID: "p9", Name: in["name"].(string)})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	repos, err := c.GithubRepos(ctx)
	require.NoError(t, err)
	assert.True(t, repos[0].AppInstalled)

	branches, err := c.GithubBranches(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "main", branches[0].Name)

	p, err := c.GithubImport(ctx, types.GithubImportRequest{Name: "hello", RepoFullName: "octo/hello", Ref: "main"})
	require.NoError(t, err)
	assert.Equal(t, "p9", p.ID)
}

func TestAdminCleanup(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/admin/files/cleanup-orphans", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"deleted": 3})
	})

	res, err := c.Admin().CleanupFiles(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, res["deleted"])
}

func TestPathSegmentsAreEscaped(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/a%2Fb", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, types.Project{ID: "a/b"})
	})

	_, err := c.GetProject(context.Background(), "a/b")
	require.NoError(t, err)
}
