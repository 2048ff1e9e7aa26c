package providers

import "errors"

// ErrIncomplete marks a successful exchange that produced no image
var ErrIncomplete = errors.New("process incomplete: no image returned")
