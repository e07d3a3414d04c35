package timeddata

import "time"

// expirationHeap orders keys by the time their slot stopped being alive.
type expirationHeap struct {
	items     []string
	expiredAt map[string]time.Time
}

func (h *expirationHeap) Len() int { return len(h.items) }
// Less orders by expiry time; keys that expired at the same instant fall
// back to key order so Stale is deterministic.
func (h *expirationHeap) Less(i, j int) bool {
	a, b := h.expiredAt[h.items[i]], h.expiredAt[h.items[j]]
	if a.Equal(b) {
		return h.items[i] < h.items[j]
	}
	return a.Before(b)
}
func (h *expirationHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}
func (h *expirationHeap) Push(x interface{}) {
	h.items = append(h.items, x.(string))
}
func (h *expirationHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[0 : n-1]
	return x
}
