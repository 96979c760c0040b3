package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"credit-risk/domain"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Holder keeps the model currently used for inference. The model is read-only;
// reloads swap the whole pointer.
type Holder struct {
	path     string
	current  atomic.Pointer[Ensemble]
	logger   *zap.Logger
	onReload func(error)
}

// NewHolder loads the model at path. A missing or invalid artifact is an error.
func NewHolder(path string, logger *zap.Logger) (*Holder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{path: path, logger: logger}
	if err := h.Reload(); err != nil {
		return nil, err
	}
	return h, nil
}

// NewStaticHolder wraps an already built model; Reload and Watch are no-ops.
func NewStaticHolder(model *Ensemble) *Holder {
	h := &Holder{logger: zap.NewNop()}
	h.current.Store(model)
	return h
}

// OnReload registers a callback invoked after every reload attempt.
func (h *Holder) OnReload(fn func(error)) {
	h.onReload = fn
}

// Current returns the model in use.
func (h *Holder) Current() (*Ensemble, error) {
	m := h.current.Load()
	if m == nil {
		return nil, domain.ErrModelNotLoaded
	}
	return m, nil
}

// Ready reports whether a model is loaded.
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}

// Reload reads the artifact again. On failure the previous model stays active.
func (h *Holder) Reload() error {
	if h.path == "" {
		return nil
	}
	model, err := LoadModel(h.path)
	if h.onReload != nil {
		h.onReload(err)
	}
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	h.current.Store(model)
	h.logger.Info("model loaded",
		zap.String("path", h.path),
		zap.String("version", model.Version()),
		zap.Int("trees", model.NumTrees()),
	)
	return nil
}

// Watch reloads the model whenever its file changes, until ctx is done.
func (h *Holder) Watch(ctx context.Context) error {
	if h.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory: atomic replaces show up as create/rename there
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		return err
	}
	target := filepath.Clean(h.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if err := h.Reload(); err != nil {
				h.logger.Warn("model reload failed, keeping previous model", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}
