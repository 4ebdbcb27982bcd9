package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}

func TestLiveReloadWrapperInjectsScript(t *testing.T) {
	h := liveReloadWrapper(htmlHandler(http.StatusOK, "<html><body><p>hi</p></body></html>"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/guide/intro.html", nil))

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, `<p>hi</p><script>`)
	assert.True(t, strings.HasSuffix(body, "</script>\n</body></html>"))
	assert.Equal(t, strconv.Itoa(len(body)), rec.Header().Get("Content-Length"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestLiveReloadWrapperPassThrough(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		h := liveReloadWrapper(htmlHandler(http.StatusNotFound, "<body>missing</body>"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope.html", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "<body>missing</body>", rec.Body.String())
	})
	t.Run("stylesheet", func(t *testing.T) {
		h := liveReloadWrapper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "body{}</body>")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_static/basic.css", nil))
		assert.Equal(t, "body{}</body>", rec.Body.String())
	})
}

func TestInjectScriptWithoutBody(t *testing.T) {
	out := string(injectScript([]byte("<p>fragment</p>")))
	assert.True(t, strings.HasPrefix(out, "<p>fragment</p><script>"))
}

func TestMuxServesOutputDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body>home</body></html>"), 0644))

	srv := httptest.NewServer(newMux(newHub(), dir))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "home")
	assert.Contains(t, string(body), `"/ws"`)
}

func TestHubBroadcastAndClose(t *testing.T) {
	h := newHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 10*time.Millisecond)

	h.broadcast([]byte("reload"))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, "reload", string(msg))

	h.closeAll()
	assert.Equal(t, 0, h.count())
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestWatcherIgnored(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_build")
	require.NoError(t, os.MkdirAll(out, 0755))

	w, err := newWatcher(root, out)
	require.NoError(t, err)
	defer w.Close()

	for path, want := range map[string]bool{
		filepath.Join(root, "index.rst"):              false,
		filepath.Join(root, "guide", "intro.md"):      false,
		filepath.Join(root, "_build", "index.html"):   true,
		filepath.Join(root, "_build"):                 true,
		filepath.Join(root, ".git", "HEAD"):           true,
		filepath.Join(root, "guide", ".intro.md.swp"): true,
		filepath.Join(root, "index.rst~"):             true,
		filepath.Join(root, "_builder.md"):            false,
	} {
		assert.Equal(t, want, w.ignored(path), path)
	}
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_build")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guide"), 0755))
	require.NoError(t, os.MkdirAll(out, 0755))

	w, err := newWatcher(root, out)
	require.NoError(t, err)
	defer w.Close()

	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.run(ctx, 50*time.Millisecond, func() { builds.Add(1) })

	// a burst of writes collapses into one rebuild
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "guide", "intro.md"), []byte("# Intro "+strconv.Itoa(i)), 0644))
	}
	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("built"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), builds.Load(), "output changes must not trigger a rebuild")

	require.NoError(t, os.MkdirAll(filepath.Join(root, "reference"), 0755))
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "reference", "api.md"), []byte("# API"), 0644))
	require.Eventually(t, func() bool { return builds.Load() == 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunInitialBuildFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(), Options{SourceDir: t.TempDir()}, func(context.Context, bool) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunStopsOnCancel(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	var cleanBuilds atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Host: "127.0.0.1", Port: 0, SourceDir: src, OutputDir: out},
			func(_ context.Context, clean bool) error {
				if clean {
					cleanBuilds.Add(1)
				}
				return nil
			})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, int32(1), cleanBuilds.Load())
}
