package github_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	githubinfra "github.com/m-mizutani/dockrel/pkg/infra/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

var testRepo = model.Repository{Owner: "acme", Name: "app"}

func newTestClient(t *testing.T, mux *http.ServeMux) interfaces.GitHubClient {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := githubinfra.NewClientWithToken(context.Background(), "test-token", githubinfra.WithBaseURL(server.URL))
	gt.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_GetPermissionLevel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/app/collaborators/alice/permission", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permission": "write"})
	})

	client := newTestClient(t, mux)
	perm, err := client.GetPermissionLevel(context.Background(), testRepo, "alice")
	gt.NoError(t, err)
	gt.Value(t, perm).Equal("write")
}

func TestClient_GetReleaseByTag_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/app/releases/tags/v1.0.0", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	})

	client := newTestClient(t, mux)
	_, err := client.GetReleaseByTag(context.Background(), testRepo, "v1.0.0")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))
}

func TestClient_GetReleaseByTag_Found(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/app/releases/tags/v1.0.0", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "tag_name": "v1.0.0"})
	})

	client := newTestClient(t, mux)
	release, err := client.GetReleaseByTag(context.Background(), testRepo, "v1.0.0")
	gt.NoError(t, err)
	gt.Value(t, release.GetTagName()).Equal("v1.0.0")
}

func TestClient_DownloadTarball(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("GET /repos/acme/app/tarball", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/codeload/acme/app/main.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("GET /codeload/acme/app/main.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-gzip")
		_, _ = w.Write([]byte("fake tarball"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := githubinfra.NewClientWithToken(context.Background(), "test-token", githubinfra.WithBaseURL(server.URL))
	gt.NoError(t, err)

	data, err := client.DownloadTarball(context.Background(), testRepo, "")
	gt.NoError(t, err)
	gt.Value(t, string(data)).Equal("fake tarball")
}

func TestClient_DownloadTarball_Failure(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("GET /repos/acme/app/tarball/abc123", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+"/codeload/gone", http.StatusFound)
	})
	mux.HandleFunc("GET /codeload/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client, err := githubinfra.NewClientWithToken(context.Background(), "test-token", githubinfra.WithBaseURL(server.URL))
	gt.NoError(t, err)

	_, err = client.DownloadTarball(context.Background(), testRepo, "abc123")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagDownloadFailed))
}

func TestClient_UpdateFile(t *testing.T) {
	t.Run("commits with previous blob SHA", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("PUT /repos/acme/app/contents/action.yml", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Message string `json:"message"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if body.SHA != "oldsha" || body.Content == "" {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"commit": map[string]any{"sha": "newcommit"},
			})
		})

		client := newTestClient(t, mux)
		result, err := client.UpdateFile(context.Background(), testRepo, "action.yml", &github.RepositoryContentFileOptions{
			Message: github.Ptr("Update Docker image version"),
			Content: []byte("runs:\n  image: docker://acme/app:1.0.1\n"),
			SHA:     github.Ptr("oldsha"),
		})
		gt.NoError(t, err)
		gt.Value(t, result.Commit.GetSHA()).Equal("newcommit")
	})

	t.Run("stale SHA is a conflicting edit", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("PUT /repos/acme/app/contents/action.yml", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "action.yml does not match oldsha"})
		})

		client := newTestClient(t, mux)
		_, err := client.UpdateFile(context.Background(), testRepo, "action.yml", &github.RepositoryContentFileOptions{
			Message: github.Ptr("Update Docker image version"),
			Content: []byte("x"),
			SHA:     github.Ptr("oldsha"),
		})
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagConflictingEdit))
	})
}

func TestClient_DeleteTag(t *testing.T) {
	t.Run("existing tag is deleted", func(t *testing.T) {
		deleted := false
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/acme/app/git/ref/tags/v1", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"ref":    "refs/tags/v1",
				"object": map[string]string{"sha": "abc", "type": "commit"},
			})
		})
		mux.HandleFunc("DELETE /repos/acme/app/git/refs/tags/v1", func(w http.ResponseWriter, r *http.Request) {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		})

		client := newTestClient(t, mux)
		gt.NoError(t, client.DeleteTag(context.Background(), testRepo, "v1"))
		gt.True(t, deleted)
	})

	t.Run("missing tag is not found", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/acme/app/git/ref/tags/latest", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		})

		client := newTestClient(t, mux)
		err := client.DeleteTag(context.Background(), testRepo, "latest")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagNotFound))
	})
}

func TestClient_CreateTag(t *testing.T) {
	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/app/git/refs", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		writeJSON(w, http.StatusCreated, map[string]any{
			"ref":    got["ref"],
			"object": map[string]string{"sha": got["sha"], "type": "commit"},
		})
	})

	client := newTestClient(t, mux)
	ref, err := client.CreateTag(context.Background(), testRepo, "v1.2", "deadbeef")
	gt.NoError(t, err)
	gt.Value(t, got["ref"]).Equal("refs/tags/v1.2")
	gt.Value(t, got["sha"]).Equal("deadbeef")
	gt.Value(t, ref.GetObject().GetSHA()).Equal("deadbeef")
}

func TestClient_CommentAndReaction(t *testing.T) {
	var commentBody, reaction string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/app/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		commentBody = body["body"]
		writeJSON(w, http.StatusCreated, map[string]any{"id": 100, "body": commentBody})
	})
	mux.HandleFunc("POST /repos/acme/app/issues/comments/42/reactions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		reaction = body["content"]
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "content": reaction})
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	comment, err := client.CreateComment(ctx, testRepo, 7, &github.IssueComment{Body: github.Ptr("hello")})
	gt.NoError(t, err)
	gt.Value(t, comment.GetID()).Equal(int64(100))
	gt.Value(t, commentBody).Equal("hello")

	gt.NoError(t, client.CreateCommentReaction(ctx, testRepo, 42, "+1"))
	gt.Value(t, reaction).Equal("+1")
}
