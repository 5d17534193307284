package cli

import (
	"errors"

	"github.com/roach88/docforge/internal/compiler"
	"github.com/roach88/docforge/internal/fault"
)

// Command error codes (E001-E099)
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Template or payload file unreadable
	ErrCodeInvalidFlag = "E003" // Flag value rejected
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeJournal     = "E008" // Journal open, record or query failed
)

// Value pipeline error codes (E101-E199), one per fault kind.
var kindCodes = map[fault.Kind]string{
	fault.KindUnsupportedHostType: "E101",
	fault.KindDepthExceeded:       "E102",
	fault.KindReferenceCycle:      "E103",
	fault.KindInvalidUTF8:         "E104",
	fault.KindUnrepresentable:     "E105",
	fault.KindMalformedInput:      "E106",
	fault.KindInvalidName:         "E107",
	fault.KindNoBody:              "E108",
}

// classify maps err to a response code and exit code. Compile failures use
// the first diagnostic's code (E201-E206) and exit with ExitFailure;
// everything else is a command error.
func classify(err error) (string, int) {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code, ExitCommandError
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		if len(ce.Diagnostics) > 0 {
			return ce.Diagnostics[0].Code, ExitFailure
		}
		return compiler.DiagEvaluation, ExitFailure
	}
	if code, ok := kindCodes[fault.KindOf(err)]; ok {
		return code, ExitCommandError
	}
	return ErrCodeGeneric, ExitCommandError
}

// codedError attaches a command error code to err.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func coded(code string, err error) error {
	return &codedError{code: code, err: err}
}
