package worker

import "sync"

// Generations tracks an opaque, monotonically increasing token per
// document. The worker captures the token before computing a batch and
// compares it again at the commit boundary; a mismatch means the batch
// was computed under superseded settings and must be discarded.
type Generations struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

// NewGenerations creates an empty registry. Unknown documents start at
// generation zero.
func NewGenerations() *Generations {
	return &Generations{tokens: make(map[string]uint64)}
}

// Current returns the document's current token.
func (g *Generations) Current(documentHash string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tokens[documentHash]
}

// Bump invalidates in-flight work for one document and returns the new
// token.
func (g *Generations) Bump(documentHash string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens[documentHash]++
	return g.tokens[documentHash]
}

// BumpAll invalidates in-flight work for every known document. Used when
// the global layout settings change.
func (g *Generations) BumpAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for hash := range g.tokens {
		g.tokens[hash]++
	}
}

// Observe registers a document so BumpAll reaches it even before its
// first explicit Bump.
func (g *Generations) Observe(documentHash string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tokens[documentHash]; !ok {
		g.tokens[documentHash] = 0
	}
}
