package journal

import (
	"errors"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/fault"
)

// Outcome builds the entry for one compile. source labels where the
// template came from (a file path or a fixture name); art and err are the
// results of Driver.Compile.
func Outcome(sessionDigest, source string, format compiler.Format, art *compiler.Artifact, err error) Entry {
	e := Entry{
		SessionDigest: sessionDigest,
		Source:        source,
		Format:        string(format),
	}
	if err != nil {
		e.Status = StatusFailed
		e.ErrorKind = string(fault.KindOf(err))
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			e.Diagnostics = ce.Diagnostics
		}
		return e
	}
	e.Status = StatusSucceeded
	if art != nil {
		e.ArtifactDigest = art.Digest
		e.ArtifactSize = len(art.Data)
	}
	return e
}
