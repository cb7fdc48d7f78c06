package retry

import "errors"

// ErrExhausted is returned when every attempt lost the race to a concurrent
// writer.
var ErrExhausted = errors.New("retry: optimistic update retry budget exhausted")
