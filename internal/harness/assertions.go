package harness

import (
	"strings"

	"github.com/roach88/docforge/internal/fault"
)

// checkExpectations compares the outcome in r against f.Expect and records
// every mismatch.
func checkExpectations(f *Fixture, r *Result) {
	want := fault.Kind(strings.ToUpper(f.Expect.Error))

	if want == "" {
		if r.Err != nil {
			r.AddError("expected success, got %s: %v", kindName(r.Err), r.Err)
			return
		}
		checkContains(r, "output", string(r.Output), f.Expect.Contains)
		if f.Expect.Output != nil && string(r.Output) != *f.Expect.Output {
			r.AddError("output mismatch:\n--- expected\n%s\n--- actual\n%s", *f.Expect.Output, r.Output)
		}
		return
	}

	if r.Err == nil {
		r.AddError("expected error %s, compile succeeded", want)
		return
	}
	if got := fault.KindOf(r.Err); got != want {
		r.AddError("expected error %s, got %s: %v", want, kindName(r.Err), r.Err)
	}
	checkContains(r, "error", r.Err.Error(), f.Expect.Contains)
}

func checkContains(r *Result, what, text string, needles []string) {
	for _, n := range needles {
		if !strings.Contains(text, n) {
			r.AddError("%s does not contain %q:\n%s", what, n, text)
		}
	}
}

func kindName(err error) string {
	if k := fault.KindOf(err); k != "" {
		return string(k)
	}
	return "unclassified error"
}
