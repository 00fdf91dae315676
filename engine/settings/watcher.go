package settings

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu   *sync.Mutex
	path string
	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	current  Settings
	ssao     atomic.Bool
	reloads  atomic.Uint64
	onChange func(Settings)
	closed   bool
}

// Watcher re-reads the settings file whenever it is written. Only the
// ambient-occlusion switch is applied at run time; everything else takes
// effect on the next start.
type Watcher interface {
	// SSAOEnabled reports the current ambient-occlusion switch. Safe to call every frame.
	SSAOEnabled() bool

	// Settings returns the settings of the last successful read.
	Settings() Settings

	// Reloads counts successful re-reads since the watcher started.
	Reloads() uint64

	// Close stops watching.
	Close() error
}

var _ Watcher = &watcher{}

// NewWatcher watches the directory holding path, so editors that replace the
// file instead of writing it in place are noticed too.
//
// Parameters:
//   - path: the settings file
//   - initial: the settings already read from path
//   - options: a variadic list of WatcherBuilderOption functions
//
// Returns:
//   - Watcher: the running watcher
//   - error: when the file system cannot be watched
func NewWatcher(path string, initial Settings, options ...WatcherBuilderOption) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: watch: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("settings: watch: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("settings: watch %s: %w", filepath.Dir(abs), err)
	}

	w := &watcher{
		mu:      &sync.Mutex{},
		path:    abs,
		fsw:     fsw,
		done:    make(chan struct{}),
		current: initial,
	}
	for _, opt := range options {
		opt(w)
	}
	w.ssao.Store(initial.Engine.SSAO)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("settings: watch: %v", err)
		}
	}
}

// reload keeps the previous settings when the file is empty or does not parse,
// which is common while an editor is half way through saving.
func (w *watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil || len(data) == 0 {
		return
	}
	s, err := Parse(data)
	if err != nil {
		log.Printf("settings: reload %s: %v", w.path, err)
		return
	}

	w.mu.Lock()
	changed := s != w.current
	w.current = s
	onChange := w.onChange
	w.mu.Unlock()

	if w.ssao.Swap(s.Engine.SSAO) != s.Engine.SSAO {
		log.Printf("settings: ssao %t", s.Engine.SSAO)
	}
	w.reloads.Add(1)
	if changed && onChange != nil {
		onChange(s)
	}
}

func (w *watcher) SSAOEnabled() bool {
	return w.ssao.Load()
}

func (w *watcher) Settings() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *watcher) Reloads() uint64 {
	return w.reloads.Load()
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
