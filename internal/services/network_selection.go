package services

import (
	"sync"

	"github.com/irfndi/rial-arbitrage-go/internal/models"
)

// NetworkSelections is the per-pair withdrawal network chosen by users. It
// is the only state carried from one cycle to the next.
type NetworkSelections struct {
	mu         sync.RWMutex
	selections map[models.CanonicalPair]string
}

// NewNetworkSelections creates an empty selection store.
func NewNetworkSelections() *NetworkSelections {
	return &NetworkSelections{selections: make(map[models.CanonicalPair]string)}
}

// Set records the network for pair. An empty network clears it.
func (n *NetworkSelections) Set(pair models.CanonicalPair, network string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if network == "" {
		delete(n.selections, pair)
		return
	}
	n.selections[pair] = network
}

// Get returns the selected network for pair.
func (n *NetworkSelections) Get(pair models.CanonicalPair) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	network, ok := n.selections[pair]
	return network, ok
}

// Snapshot returns a copy that is safe to read for the duration of a cycle.
func (n *NetworkSelections) Snapshot() map[models.CanonicalPair]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[models.CanonicalPair]string, len(n.selections))
	for pair, network := range n.selections {
		out[pair] = network
	}
	return out
}
