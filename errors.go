package timeddata

import "errors"

var (
	ErrNegativeExpiration = errors.New("expiration must not be negative")
	ErrSlotNotFound       = errors.New("slot not found")
)
