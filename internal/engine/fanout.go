package engine

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"hubsync.dev/hubsync/internal/output"
)

// failFast runs every task concurrently and returns the first error once all
// tasks have returned. Running tasks are not interrupted.
func failFast(tasks ...func() error) error {
	var g errgroup.Group
	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

// outcome is the result of one task run by collectAll
type outcome[T any] struct {
	Value T
	Err   error
}

// collectAll runs fn for every key concurrently and waits for all of them.
// A failure never stops another key.
func collectAll[T any](keys []string, fn func(key string) (T, error)) map[string]outcome[T] {
	results := make(map[string]outcome[T], len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			value, err := fn(key)
			mu.Lock()
			results[key] = outcome[T]{Value: value, Err: err}
			mu.Unlock()
		}(key)
	}

	wg.Wait()
	return results
}

// bestEffort runs named cleanup tasks concurrently and logs failures
func bestEffort(splog *output.Splog, tasks map[string]func() error) {
	names := make([]string, 0, len(tasks))
	for name := range tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := collectAll(names, func(name string) (struct{}, error) {
		return struct{}{}, tasks[name]()
	})
	for _, name := range names {
		if err := results[name].Err; err != nil {
			splog.Warn("Cleanup of %s failed.", name)
			splog.Debug("cleanup %s: %v", name, err)
		}
	}
}
