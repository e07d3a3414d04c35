package timeddata

import "sync"

// slotEntry is the row stored in the registry table. Key is the indexed
// field; mu serializes every access to slot.
type slotEntry[T any] struct {
	Key  string
	mu   sync.Mutex
	slot *TimedData[T]
}
