package harness

import (
	"fmt"

	"github.com/roach88/docforge/internal/journal"
)

// Result is the outcome of running one fixture.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Output is the artifact bytes; nil when the compile failed.
	Output []byte

	// Err is the error returned by binding or compiling, if any.
	Err error

	// Entry is the journal record of the compile. Its ID is empty when the
	// run stopped during binding.
	Entry journal.Entry

	// Errors lists failed expectations.
	Errors []string
}

// AddError records a failed expectation.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
