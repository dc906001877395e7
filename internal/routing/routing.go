// Package routing loads and hot-reloads the tenant+project assignee
// pool. The executor consults it, through
// internal/invariant.RoutingConsistent, on assign actions to check that
// the explicit assignee belongs to the task's pool. Nothing in this
// module picks an assignee from the pool: tasks are not auto-assigned.
package routing

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Pool is a tenant+project -> assignee set, reloadable from disk.
type Pool struct {
	mu      sync.RWMutex
	members map[string]map[string]bool // key: tenantID+"/"+projectID

	path    string
	watcher *fsnotify.Watcher
	onError func(error)
}

type fileFormat struct {
	Pools []struct {
		TenantID  string   `yaml:"tenant_id"`
		ProjectID string   `yaml:"project_id"`
		Members   []string `yaml:"members"`
	} `yaml:"pools"`
}

func poolKey(tenantID, projectID string) string {
	return tenantID + "/" + projectID
}

// Load reads path once and returns a Pool with no file watcher
// attached; use Watch to additionally hot-reload on change.
func Load(path string) (*Pool, error) {
	p := &Pool{path: path, members: map[string]map[string]bool{}}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("reading routing file %s: %w", p.path, err)
	}
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing routing file %s: %w", p.path, err)
	}

	members := make(map[string]map[string]bool, len(doc.Pools))
	for _, pool := range doc.Pools {
		set := make(map[string]bool, len(pool.Members))
		for _, m := range pool.Members {
			set[m] = true
		}
		members[poolKey(pool.TenantID, pool.ProjectID)] = set
	}

	p.mu.Lock()
	p.members = members
	p.mu.Unlock()
	return nil
}

// Member reports whether assigneeID belongs to the routing pool for
// (tenantID, projectID). An unconfigured tenant/project pair has no
// pool and is treated as open (any assignee allowed), since routing is
// an additive constraint, not a default-deny gate.
func (p *Pool) Member(ctx context.Context, tenantID, projectID, assigneeID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.members[poolKey(tenantID, projectID)]
	if !ok {
		return true, nil
	}
	return set[assigneeID], nil
}

// Watch starts a background goroutine that reloads the pool whenever
// the backing file changes, falling back to no reload (best effort,
// matching the teacher's own watcher fallback stance) if the
// filesystem watcher cannot be created. onError, if non-nil, receives
// reload failures so the caller can log them; Watch itself never
// returns an error for a failed individual reload.
func (p *Pool) Watch(ctx context.Context, onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		if onError != nil {
			onError(fmt.Errorf("routing: fsnotify unavailable, hot reload disabled: %w", err))
		}
		return nil
	}
	if err := watcher.Add(p.path); err != nil {
		_ = watcher.Close()
		if onError != nil {
			onError(fmt.Errorf("routing: watching %s: %w", p.path, err))
		}
		return nil
	}

	p.watcher = watcher
	p.onError = onError

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := p.reload(); err != nil && p.onError != nil {
						p.onError(err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if p.onError != nil {
					p.onError(err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher, if one was started.
func (p *Pool) Close() error {
	if p.watcher == nil {
		return nil
	}
	return p.watcher.Close()
}
