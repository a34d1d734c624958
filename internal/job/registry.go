package job

import (
	"sort"
	"sync"
)

// Registry holds the jobs a dispatcher is currently driving.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Track adds j to the registry.
func (r *Registry) Track(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

// Release removes a job once it is terminal.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// IDs returns the identifiers of tracked jobs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
