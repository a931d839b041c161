package constraint

import "github.com/pkg/errors"

// ErrSpec marks a malformed interface or ill-typed contract: an
// unresolved parameter/attribute reference, a type mismatch in
// value.eq, an out-of-range variant case. Per spec §7 this is fatal —
// callers should abort the run, not retry.
var ErrSpec = errors.New("constraint: spec error")
