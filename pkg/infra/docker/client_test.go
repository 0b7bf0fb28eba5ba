package docker_test

import (
	"archive/tar"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dockerclient "github.com/docker/docker/client"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/dockrel/pkg/infra/docker"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

const testImageID = "sha256:4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945"

// fakeEngine records the Docker engine API calls made by the builder
type fakeEngine struct {
	buildStream  string
	pushStream   string
	contextFiles []string
	tagged       []string
	pushed       []string
	pushAuth     []string
}

func (e *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/build"):
		tr := tar.NewReader(r.Body)
		for {
			hdr, err := tr.Next()
			if err != nil {
				break
			}
			e.contextFiles = append(e.contextFiles, hdr.Name)
		}
		_, _ = w.Write([]byte(e.buildStream))
	case strings.HasSuffix(r.URL.Path, "/tag"):
		e.tagged = append(e.tagged, r.URL.Query().Get("repo")+":"+r.URL.Query().Get("tag"))
		w.WriteHeader(http.StatusCreated)
	case strings.HasSuffix(r.URL.Path, "/push"):
		e.pushed = append(e.pushed, r.URL.Query().Get("tag"))
		e.pushAuth = append(e.pushAuth, r.Header.Get("X-Registry-Auth"))
		_, _ = w.Write([]byte(e.pushStream))
	case strings.HasSuffix(r.URL.Path, "/auth"):
		_, _ = w.Write([]byte(`{"Status":"Login Succeeded"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestBuilder(t *testing.T, engine *fakeEngine) (interfaces.ImageBuilder, *bytes.Buffer) {
	t.Helper()

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	var out bytes.Buffer
	b, err := docker.New(
		docker.Credential{Username: "bot", Password: "s3cret"},
		docker.WithClientOpts(
			dockerclient.WithHost("tcp://"+strings.TrimPrefix(server.URL, "http://")),
			dockerclient.WithVersion("1.45"),
		),
		docker.WithOutput(&out),
	)
	gt.NoError(t, err)
	return b, &out
}

func newBuildContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0600))
	return dir
}

func TestBuilder_Build(t *testing.T) {
	engine := &fakeEngine{
		buildStream: `{"stream":"Step 1/1 : FROM scratch\n"}` + "\n" +
			`{"aux":{"ID":"` + testImageID + `"}}` + "\n" +
			`{"stream":"Successfully built 4f53cda18c2b\n"}` + "\n",
	}
	b, out := newTestBuilder(t, engine)

	id, err := b.Build(context.Background(), newBuildContext(t))
	gt.NoError(t, err)
	gt.Value(t, id).Equal(testImageID)
	gt.String(t, out.String()).Contains("FROM scratch")
}

func TestBuilder_Build_Dockerignore(t *testing.T) {
	engine := &fakeEngine{
		buildStream: `{"aux":{"ID":"` + testImageID + `"}}` + "\n",
	}
	b, _ := newTestBuilder(t, engine)

	dir := newBuildContext(t)
	gt.NoError(t, os.WriteFile(filepath.Join(dir, ".dockerignore"), []byte("# local files\n*.log\nsecrets/\nDockerfile\n"), 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0600))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "debug.log"), []byte("noise\n"), 0600))
	gt.NoError(t, os.Mkdir(filepath.Join(dir, "secrets"), 0700))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "secrets", "token"), []byte("x\n"), 0600))

	_, err := b.Build(context.Background(), dir)
	gt.NoError(t, err)

	files := strings.Join(engine.contextFiles, ",")
	gt.String(t, files).Contains("Dockerfile")
	gt.String(t, files).Contains("main.go")
	gt.False(t, strings.Contains(files, "debug.log"))
	gt.False(t, strings.Contains(files, "secrets"))
}

func TestBuilder_Build_Failure(t *testing.T) {
	engine := &fakeEngine{
		buildStream: `{"stream":"Step 1/2 : FROM scratch\n"}` + "\n" +
			`{"errorDetail":{"message":"unknown instruction: RUNN"},"error":"unknown instruction: RUNN"}` + "\n",
	}
	b, _ := newTestBuilder(t, engine)

	_, err := b.Build(context.Background(), newBuildContext(t))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagBuildFailed))
}

func TestBuilder_Build_NoImageID(t *testing.T) {
	engine := &fakeEngine{
		buildStream: `{"stream":"nothing happened\n"}` + "\n",
	}
	b, _ := newTestBuilder(t, engine)

	_, err := b.Build(context.Background(), newBuildContext(t))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagBuildFailed))
}

func TestBuilder_Publish(t *testing.T) {
	engine := &fakeEngine{
		pushStream: `{"status":"Pushed","progressDetail":{},"id":"4f53cda18c2b"}` + "\n",
	}
	b, _ := newTestBuilder(t, engine)
	ctx := context.Background()

	gt.NoError(t, b.Login(ctx))
	for _, tag := range []string{"1.2.3", "1.2", "1", "latest"} {
		gt.NoError(t, b.Publish(ctx, testImageID, "acme/app", tag))
	}

	gt.Value(t, engine.tagged).Equal([]string{"acme/app:1.2.3", "acme/app:1.2", "acme/app:1", "acme/app:latest"})
	gt.Value(t, engine.pushed).Equal([]string{"1.2.3", "1.2", "1", "latest"})
	for _, auth := range engine.pushAuth {
		gt.Value(t, auth).NotEqual("")
	}
}

func TestBuilder_Publish_Failure(t *testing.T) {
	engine := &fakeEngine{
		pushStream: `{"errorDetail":{"message":"denied: requested access to the resource is denied"},"error":"denied"}` + "\n",
	}
	b, _ := newTestBuilder(t, engine)

	err := b.Publish(context.Background(), testImageID, "acme/app", "latest")
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagPushFailed))
}
