package searchclient

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/makan/internal/metrics"
	"github.com/kailas-cloud/makan/internal/worker"
)

type reply struct {
	resp worker.Response
	err  error
}

type pendingEntry struct {
	ch    chan reply
	owner Worker
}

// pendingTable correlates in-flight requests with worker responses by request ID.
// Each entry is consumed exactly once: by a response, a timeout, or its worker stopping.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]pendingEntry)}
}

// register creates an entry for id, owned by the worker the request is posted to.
func (p *pendingTable) register(id string, owner Worker) (<-chan reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[id]; ok {
		return nil, fmt.Errorf("request %s is already pending", id)
	}
	ch := make(chan reply, 1)
	p.entries[id] = pendingEntry{ch: ch, owner: owner}
	metrics.PendingRequests.Set(float64(len(p.entries)))
	return ch, nil
}

// resolve delivers r to the entry for id and removes it. Returns false for unknown IDs.
func (p *pendingTable) resolve(id string, r reply) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		return false
	}
	delete(p.entries, id)
	metrics.PendingRequests.Set(float64(len(p.entries)))
	e.ch <- r
	return true
}

// remove drops the entry for id without delivering anything.
func (p *pendingTable) remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[id]; !ok {
		return false
	}
	delete(p.entries, id)
	metrics.PendingRequests.Set(float64(len(p.entries)))
	return true
}

// failOwnedBy rejects every entry posted to owner and returns how many were rejected.
func (p *pendingTable) failOwnedBy(owner Worker, err error) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for id, e := range p.entries {
		if e.owner != owner {
			continue
		}
		delete(p.entries, id)
		e.ch <- reply{err: err}
		n++
	}
	metrics.PendingRequests.Set(float64(len(p.entries)))
	return n
}

func (p *pendingTable) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
