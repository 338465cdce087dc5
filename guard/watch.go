package guard

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// WatchOptions reloads the JSON options file at path whenever it changes and
// applies the dynamic fields (currently check_heap_on_failure) to the
// runtime. It returns a stop function that ends the watch. Static fields
// (arena geometry, quarantine budget) are fixed at NewRuntime and ignored on
// reload.
func (rt *Runtime) WatchOptions(path string) (func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch options: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch options %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				opts, err := LoadOptions(path)
				if err != nil {
					continue
				}
				rt.SetCheckHeapOnFailure(opts.CheckHeapOnFailure)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w.Close, nil
}
