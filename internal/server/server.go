// Package server runs the development server: it rebuilds the site when the
// source tree changes and tells open browser tabs to reload.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDebounce = 300 * time.Millisecond
	shutdownTimeout = 5 * time.Second
)

// BuildFunc renders the site. clean is true only for the initial build.
type BuildFunc func(ctx context.Context, clean bool) error

// Options configure Run.
type Options struct {
	Host      string
	Port      int
	SourceDir string
	// OutputDir is served and, when it lies inside SourceDir, not watched.
	OutputDir string
	Debounce  time.Duration
}

// Run builds the site once, then serves it while rebuilding on source
// changes. It returns when ctx is cancelled or the listener fails.
func Run(ctx context.Context, opts Options, build BuildFunc) error {
	if err := build(ctx, true); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w, err := newWatcher(opts.SourceDir, opts.OutputDir)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	h := newHub()
	go w.run(ctx, debounce, func() {
		if err := build(ctx, false); err != nil {
			slog.Error("Rebuild failed", "error", err)
			return
		}
		slog.Info("Site rebuilt", "clients", h.count())
		h.broadcast([]byte("reload"))
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:           newMux(h, opts.OutputDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	host := opts.Host
	if host == "" {
		host = "localhost"
	}
	slog.Info("Serving site", "url", "http://"+net.JoinHostPort(host, strconv.Itoa(opts.Port)), "dir", opts.OutputDir)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	h.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(h *hub, dir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.Handle("/", liveReloadWrapper(http.FileServer(http.Dir(dir))))
	return mux
}

// liveReloadWrapper disables caching and injects the reload script into
// successful HTML responses.
func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		rec := newBufferedWriter()
		next.ServeHTTP(rec, r)

		for key, values := range rec.header {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}
		body := rec.body.Bytes()
		if rec.status == http.StatusOK && strings.HasPrefix(rec.header.Get("Content-Type"), "text/html") {
			body = injectScript(body)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(rec.status)
		_, _ = w.Write(body)
	})
}

func injectScript(body []byte) []byte {
	i := bytes.LastIndex(body, []byte("</body>"))
	if i < 0 {
		return append(body, liveReloadScript...)
	}
	out := make([]byte, 0, len(body)+len(liveReloadScript))
	out = append(out, body[:i]...)
	out = append(out, liveReloadScript...)
	return append(out, body[i:]...)
}

// bufferedWriter holds a response so it can be rewritten before sending.
type bufferedWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header         { return b.header }
func (b *bufferedWriter) Write(p []byte) (int, error) { return b.body.Write(p) }
func (b *bufferedWriter) WriteHeader(status int)      { b.status = status }

const liveReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var socket = new WebSocket(proto + location.host + "/ws");
  socket.onmessage = function (event) {
    if (event.data === "reload") {
      location.reload();
    }
  };
  socket.onerror = function () {
    console.error("folio: live reload disconnected, restart 'folio serve'");
  };
})();
</script>
`
