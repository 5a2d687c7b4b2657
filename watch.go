package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// watchDelay batches the burst of events an editor produces on save.
const watchDelay = 150 * time.Millisecond

func (c *cli) watch(ctx context.Context, args []string) error {
	fs := c.flagSet("watch")
	format := fs.String("format", "table", "Output format: table, json or csv")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 || fs.Arg(0) == "-" {
		return fmt.Errorf("watch: expected one scene file")
	}
	path := fs.Arg(0)

	app, err := NewApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	return watchScene(ctx, path, func() {
		res, err := c.loadPath(app, path)
		if err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return
		}
		c.printWarnings(res)
		if err := writeJoints(c.stdout, *format, res); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
		}
	})
}

// watchScene calls update once, then again after every change to path,
// until ctx is done. Calls to update never overlap.
func watchScene(ctx context.Context, path string, update func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file by rename.
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var mu sync.Mutex
	run := func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() == nil {
			update()
		}
	}
	run()

	debounced := debounce.New(watchDelay)
	for {
		select {
		case <-ctx.Done():
			// Wait out a running update.
			mu.Lock()
			defer mu.Unlock()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounced(run)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}
