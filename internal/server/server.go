// Package server implements the development server: it serves a challenge's
// source tree over HTTP and applies compiler directives per request, so the
// latest source is always visible without a build step.
//
// No transformed output is cached across requests; every request re-reads
// the source and re-applies directives. That trades throughput for
// correctness under concurrent edits, which is the right trade for a local
// development tool.
package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/Wyatt-Stanke/ctf/internal/challenge"
	"github.com/Wyatt-Stanke/ctf/internal/config"
	"github.com/Wyatt-Stanke/ctf/internal/directive"
	"github.com/Wyatt-Stanke/ctf/internal/logging"
	"github.com/Wyatt-Stanke/ctf/internal/watcher"
)

// Server serves one challenge source tree with live directive processing.
type Server struct {
	cfg    *config.Config
	fs     afero.Fs
	root   string
	engine *directive.Engine
	log    logging.Logger

	httpServer  *http.Server
	serverMutex sync.RWMutex

	watcher *watcher.FileWatcher
	reload  *reloadHub
}

// New creates a dev server rooted at root.
func New(cfg *config.Config, fs afero.Fs, root string, engine *directive.Engine, log logging.Logger) (*Server, error) {
	if exists, err := afero.DirExists(fs, root); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("source directory %s does not exist", root)
	}

	s := &Server{
		cfg:    cfg,
		fs:     fs,
		root:   path.Clean(root),
		engine: engine,
		log:    log.WithComponent("server"),
	}

	if cfg.Server.LiveReload {
		fw, err := watcher.New(300 * time.Millisecond)
		if err != nil {
			return nil, fmt.Errorf("create file watcher: %w", err)
		}
		s.watcher = fw
		s.reload = newReloadHub(s.log)
	}
	return s, nil
}

// Handler returns the server's HTTP handler. Exposed separately from Start
// so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.reload != nil {
		mux.HandleFunc(reloadPath, s.reload.handleWebSocket)
	}
	mux.HandleFunc("/", s.handleFile)
	return mux
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.AddRecursive(s.root); err != nil {
			return fmt.Errorf("watch source tree: %w", err)
		}
		s.watcher.AddHandler(func(events []watcher.ChangeEvent) {
			s.log.Debug("source changed", "files", len(events))
			s.reload.broadcast(ctx)
		})
		s.watcher.Start(ctx)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.serverMutex.Lock()
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	srv := s.httpServer
	s.serverMutex.Unlock()

	s.log.Info("dev server listening", "addr", addr, "root", s.root,
		"live_reload", s.cfg.Server.LiveReload)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.reload != nil {
		s.reload.closeAll()
	}

	s.serverMutex.RLock()
	srv := s.httpServer
	s.serverMutex.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	fsPath, ok := s.resolvePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if isDir, _ := afero.IsDir(s.fs, fsPath); isDir {
		// Trailing-slash redirect first so relative links inside the
		// directory resolve correctly, then fall through to index.html.
		if !strings.HasSuffix(r.URL.Path, "/") {
			target := r.URL.Path + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		fsPath = path.Join(fsPath, "index.html")
	}

	// Metadata files and hidden markdown are always unreachable.
	if challenge.IsExcludedName(path.Base(fsPath)) {
		http.NotFound(w, r)
		return
	}

	if exists, _ := afero.Exists(s.fs, fsPath); !exists {
		http.NotFound(w, r)
		return
	}

	decl, found := directive.DetectFile(s.fs, fsPath)
	if found && decl.Directive == directive.NoInclude {
		http.NotFound(w, r)
		return
	}

	content, err := afero.ReadFile(s.fs, fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	body := content
	if found {
		// The directory listing context is computed from the live
		// filesystem on every request, never cached.
		ctx := directive.Context{
			Fs:        s.fs,
			Root:      s.root,
			Path:      fsPath,
			URLPrefix: s.urlPrefix(fsPath),
		}
		if decl.Directive == directive.DirectoryListing {
			entries, err := directive.ReadEntries(s.fs, path.Dir(fsPath))
			if err != nil {
				http.Error(w, fmt.Sprintf("directive error: %v", err), http.StatusInternalServerError)
				return
			}
			ctx.Entries = entries
		}

		res, err := s.engine.Apply(decl, content, ctx)
		if err != nil {
			s.log.Error("directive failed", "path", fsPath, "directive", decl.Directive.String(), "error", err)
			http.Error(w, fmt.Sprintf("directive error: %v", err), http.StatusInternalServerError)
			return
		}
		switch res.Action {
		case directive.ActionExclude:
			http.NotFound(w, r)
			return
		case directive.ActionWrite:
			body = res.Data
		}
	}

	ctype := contentType(fsPath)
	if s.reload != nil && strings.HasPrefix(ctype, "text/html") {
		body = injectReloadScript(body)
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// resolvePath maps a request URL path onto the source tree. Dot-dot segments
// are discarded so a request can never escape the root.
func (s *Server) resolvePath(urlPath string) (string, bool) {
	cleaned := path.Clean("/" + urlPath)
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", false
		}
	}
	return path.Join(s.root, cleaned), true
}

// urlPrefix maps a resolved source path back to the URL of its containing
// directory. Derived from fsPath rather than the request path so that a
// directory request rewritten to its index.html still yields the directory's
// own URL.
func (s *Server) urlPrefix(fsPath string) string {
	rel := strings.TrimPrefix(path.Dir(fsPath), s.root)
	rel = "/" + strings.TrimPrefix(rel, "/")
	if rel != "/" {
		rel += "/"
	}
	return rel
}

func contentType(p string) string {
	if ctype := mime.TypeByExtension(path.Ext(p)); ctype != "" {
		return ctype
	}
	return "application/octet-stream"
}
