package storage

import "errors"

// ErrNotFound is the sentinel "absent" result required by spec.md §4.2;
// repository implementations return it wrapped with context by the
// concrete Get call, and callers use errors.Is to detect it.
var ErrNotFound = errors.New("storage: not found")
