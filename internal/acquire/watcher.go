package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/example/pneumoscan/internal/classification"
)

// DefaultSettle is how long a dropped file must stay quiet before it is read.
const DefaultSettle = 250 * time.Millisecond

// Handler receives each file dropped into the watched directory.
type Handler func(file classification.SelectedFile, err error)

// Watcher turns files dropped into a directory into selections.
type Watcher struct {
	dir       string
	settle    time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger
	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]clockwork.Timer
}

// NewWatcher creates a watcher for dir using fsnotify.
func NewWatcher(dir string, settle time.Duration, clock clockwork.Clock, logger *zap.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}

	if settle <= 0 {
		settle = DefaultSettle
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		dir:       dir,
		settle:    settle,
		clock:     clock,
		logger:    logger.Named("drop_watcher").With(zap.String("directory", dir)),
		fsWatcher: fsWatcher,
		pending:   make(map[string]clockwork.Timer),
	}, nil
}

// Run delivers settled files to handle until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	defer w.stop()
	w.logger.Info("watching drop directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if ignored(event.Name) {
				continue
			}
			w.schedule(event.Name, handle)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string, handle Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = w.clock.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		file, err := LoadFile(path)
		if err != nil {
			w.logger.Warn("failed to read dropped file", zap.String("path", path), zap.Error(err))
		} else {
			w.logger.Debug("file dropped", zap.String("path", path), zap.String("mime_type", file.MIMEType))
		}
		handle(file, err)
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if err := w.fsWatcher.Close(); err != nil {
		w.logger.Warn("failed to close watcher", zap.Error(err))
	}
}

func ignored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".part") ||
		strings.HasSuffix(base, ".crdownload") ||
		strings.HasSuffix(base, ".tmp")
}
