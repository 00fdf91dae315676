package settings

// WatcherBuilderOption is a functional option for configuring a Watcher via NewWatcher.
type WatcherBuilderOption func(*watcher)

// WithOnChange registers a callback run on the watcher goroutine after every
// successful read that changed any value.
//
// Parameters:
//   - fn: the callback, receiving the new settings
//
// Returns:
//   - WatcherBuilderOption: a function that applies the callback to a watcher
func WithOnChange(fn func(Settings)) WatcherBuilderOption {
	return func(w *watcher) {
		w.onChange = fn
	}
}
