package search

import "github.com/poiesic/gist/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, limit int)
	AfterBackend(hits []core.SearchHit)
	Dropped(hit core.SearchHit, reason string)
	Finish(hits []core.SearchHit)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)              {}
func (n *noopMonitor) AfterBackend(_ []core.SearchHit)    {}
func (n *noopMonitor) Dropped(_ core.SearchHit, _ string) {}
func (n *noopMonitor) Finish(_ []core.SearchHit)          {}
