package ann

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// hnswThreshold is the vector count at which PreferHNSW reports true. The
// search engine does not consult it: semantic search always cosine-ranks
// every embedded chunk.
const hnswThreshold = 20000

// HNSWIndex wraps coder/hnsw behind VectorStore for large indexes where the
// flat scan dominates query latency. Scores are approximate.
type HNSWIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dim     int
	keyToID map[uint64]string
	nextKey uint64
}

// NewHNSWIndex returns an empty HNSW-backed store with cosine distance.
func NewHNSWIndex() *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	return &HNSWIndex{
		graph:   graph,
		keyToID: make(map[uint64]string),
	}
}

// PreferHNSW reports whether a corpus of n vectors is large enough that the
// approximate backend pays off.
func PreferHNSW(n int) bool { return n >= hnswThreshold }

func (h *HNSWIndex) Add(id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for id %q", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dim == 0 {
		h.dim = len(vector)
	} else if len(vector) != h.dim {
		return fmt.Errorf("vector for id %q has dimension %d, expected %d", id, len(vector), h.dim)
	}

	key := h.nextKey
	h.nextKey++
	h.graph.Add(hnsw.MakeNode(key, vector))
	h.keyToID[key] = id
	return nil
}

func (h *HNSWIndex) Search(query []float32, topK int) ([]Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if len(h.keyToID) == 0 {
		return nil, fmt.Errorf("index is empty")
	}
	if len(query) != h.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), h.dim)
	}
	if topK <= 0 {
		topK = len(h.keyToID)
	}

	nodes := h.graph.Search(query, topK)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := h.keyToID[node.Key]
		if !ok {
			continue
		}
		// CosineDistance is 1 - similarity.
		distance := h.graph.Distance(query, node.Value)
		results = append(results, Result{ID: id, Score: 1 - float64(distance)})
	}
	return results, nil
}

func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.keyToID)
}

func (h *HNSWIndex) Dim() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dim
}
