//go:build debug

package face

// Debug builds stop on the first invariant fault.
const failFast = true
