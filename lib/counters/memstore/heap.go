package memstore

import "container/heap"

// ttlItem is one entry in the expiry heap: a counter key's hashed
// identifier paired with its expiry deadline (unix seconds).
type ttlItem struct {
	keyHash  uint64
	deadline int64
	index    int
}

// ttlHeap is a binary-heap-plus-hashmap priority queue that lets the
// memstore background sweeper find the next key to expire in O(log n)
// while still supporting O(1) existence checks and O(log n) removal by
// key, the same combination the sharded in-memory engine elsewhere in this
// codebase uses for its own garbage collection.
type ttlHeap struct {
	items []*ttlItem
	byKey map[uint64]*ttlItem
}

func newTTLHeap() *ttlHeap {
	return &ttlHeap{byKey: make(map[uint64]*ttlItem)}
}

func (h *ttlHeap) Len() int { return len(h.items) }

func (h *ttlHeap) Less(i, j int) bool { return h.items[i].deadline < h.items[j].deadline }

func (h *ttlHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *ttlHeap) Push(x interface{}) {
	it := x.(*ttlItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byKey[it.keyHash] = it
}

func (h *ttlHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	h.items = old[:n-1]
	delete(h.byKey, it.keyHash)
	return it
}

// Set inserts or updates the deadline for keyHash.
func (h *ttlHeap) Set(keyHash uint64, deadline int64) {
	if it, exists := h.byKey[keyHash]; exists {
		it.deadline = deadline
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &ttlItem{keyHash: keyHash, deadline: deadline})
}

// RemoveByKey removes keyHash's entry, if any.
func (h *ttlHeap) RemoveByKey(keyHash uint64) {
	if it, exists := h.byKey[keyHash]; exists {
		heap.Remove(h, it.index)
	}
}

// PopExpired removes and returns every key whose deadline is <= now.
func (h *ttlHeap) PopExpired(now int64) []uint64 {
	var expired []uint64
	for h.Len() > 0 && h.items[0].deadline <= now {
		it := heap.Pop(h).(*ttlItem)
		expired = append(expired, it.keyHash)
	}
	return expired
}
