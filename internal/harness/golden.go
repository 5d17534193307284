package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs a fixture and compares its artifact against
// testdata/golden/<name>.golden. Failed compiles compare their error text.
// Update goldens with: go test ./internal/harness -update
func RunWithGolden(t *testing.T, f *Fixture) *Result {
	t.Helper()

	result, err := Run(f)
	if err != nil {
		t.Fatalf("fixture %s: %v", f.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	g.Assert(t, f.Name, GoldenBytes(result))

	return result
}

// GoldenBytes is what a golden file holds for r: the artifact, or the error
// text followed by a newline.
func GoldenBytes(r *Result) []byte {
	if r.Err != nil {
		return []byte(r.Err.Error() + "\n")
	}
	return r.Output
}
