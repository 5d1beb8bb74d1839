package descriptorfs

import "runtime"

// runtimeCaller resolves the source file of this package itself, giving
// SearchRoots a source-relative candidate root (useful when running from
// `go run`/tests rather than an installed binary).
func runtimeCaller() (pc uintptr, file string, line int, ok bool) {
	return runtime.Caller(0)
}
