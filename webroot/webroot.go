// Package webroot resolves request URLs to filesystem paths under a web
// root (spec §9's default-path resolution) and caches the existence check
// so the cooperative service loop never re-stats a path on every request;
// github.com/fsnotify/fsnotify invalidates the cache when the web root
// changes on disk, the way the rest of the retrieved pack uses fsnotify for
// config/asset reload rather than polling. There is no original_source
// precedent for caching — the ESP32 target reads its SPIFFS/LittleFS
// partition directly on every request — this is new ground for the Go
// port, where stat() is comparatively expensive per request.
package webroot

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrOutsideRoot is returned (as a non-ok Resolve) when a request path
// would escape the web root via "..".
var ErrOutsideRoot = errors.New("webroot: path escapes web root")

type entry struct {
	path   string
	exists bool
}

// Resolver maps request URLs to files under BaseFolder, caching the
// resolution until a filesystem event invalidates it.
type Resolver struct {
	baseFolder  string
	defaultPath string

	mu    sync.RWMutex
	cache map[string]entry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewResolver starts watching baseFolder for changes. Only the top-level
// directory is watched (fsnotify does not recurse); a web root with
// subdirectories still resolves correctly, it just won't invalidate the
// cache for changes several levels down until the whole cache is cleared by
// a change at the watched level.
func NewResolver(baseFolder, defaultPath string) (*Resolver, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(baseFolder); err != nil {
		w.Close()
		return nil, err
	}

	r := &Resolver{
		baseFolder:  baseFolder,
		defaultPath: defaultPath,
		cache:       make(map[string]entry),
		watcher:     w,
		done:        make(chan struct{}),
	}
	go r.watch()
	return r, nil
}

func (r *Resolver) watch() {
	for {
		select {
		case _, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			r.mu.Lock()
			r.cache = make(map[string]entry)
			r.mu.Unlock()
		case _, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
		case <-r.done:
			return
		}
	}
}

// Close stops the filesystem watcher.
func (r *Resolver) Close() error {
	close(r.done)
	return r.watcher.Close()
}

// Resolve maps urlPath ("/" mapped to defaultPath first, per spec §9) to a
// filesystem path, reporting false if the path escapes the web root or the
// file does not exist.
func (r *Resolver) Resolve(urlPath string) (string, bool) {
	if urlPath == "/" || urlPath == "" {
		urlPath = r.defaultPath
	}

	r.mu.RLock()
	if e, ok := r.cache[urlPath]; ok {
		r.mu.RUnlock()
		if !e.exists {
			return "", false
		}
		return e.path, true
	}
	r.mu.RUnlock()

	clean := filepath.Clean("/" + urlPath)
	full := filepath.Join(r.baseFolder, clean)
	if !strings.HasPrefix(full, filepath.Clean(r.baseFolder)+string(filepath.Separator)) && full != filepath.Clean(r.baseFolder) {
		return "", false
	}

	info, err := os.Stat(full)
	exists := err == nil && !info.IsDir()

	r.mu.Lock()
	r.cache[urlPath] = entry{path: full, exists: exists}
	r.mu.Unlock()

	if !exists {
		return "", false
	}
	return full, true
}
