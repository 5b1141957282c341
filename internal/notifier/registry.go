package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers sorted by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// Result is the outcome of one notifier's delivery.
type Result struct {
	Name     string
	Delivery Delivery
	Err      error
}

// NotifyAll delivers msg to every registered notifier once. Failures are
// collected, never retried.
func (r *Registry) NotifyAll(ctx context.Context, msg Message) []Result {
	notifiers := r.GetAll()

	results := make([]Result, 0, len(notifiers))
	for _, n := range notifiers {
		var (
			d   Delivery
			err error
		)
		if ms, ok := n.(MessageSender); ok {
			d, err = ms.SendMessage(ctx, msg)
		} else {
			d, err = n.Send(ctx, msg.Text)
		}
		results = append(results, Result{Name: n.Name(), Delivery: d, Err: err})
	}
	return results
}
