package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Guard validates status changes against the current edge set. The edge
// set can be swapped at runtime without locking callers.
type Guard struct {
	graph atomic.Pointer[Graph]
}

func NewGuard(g *Graph) *Guard {
	if g == nil {
		g = Linear()
	}
	guard := &Guard{}
	guard.graph.Store(g)
	return guard
}

func (g *Guard) Graph() *Graph {
	return g.graph.Load()
}

func (g *Guard) Set(graph *Graph) {
	g.graph.Store(graph)
}

func (g *Guard) Validate(from, to Status) error {
	return g.Graph().Validate(from, to)
}

func (g *Guard) Path(from, to Status) ([]Status, error) {
	return g.Graph().Path(from, to)
}

// Watch reloads the edge set from path whenever the file changes, until ctx
// is done. An invalid file is logged and the previous edge set is kept.
//
// The parent directory is watched so that editors and deploy tools that
// replace the file by rename are picked up.
func (g *Guard) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Base(path)
	slog.InfoContext(ctx, "pipeline: watching config", "path", path)

	var (
		timer  *time.Timer
		reload = make(chan struct{}, 1)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			graph, err := LoadFile(path)
			if err != nil {
				slog.WarnContext(ctx, "pipeline: keeping previous transitions", "path", path, "error", err)
				continue
			}
			g.Set(graph)
			slog.InfoContext(ctx, "pipeline: transitions reloaded", "path", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "pipeline: watcher error", "error", err)
		}
	}
}
