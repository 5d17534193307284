// Package tvt provides the Tagged Value Tree: the closed, language-neutral
// value representation every bound variable is normalized into before it
// is converted to compiler values.
//
// This package imports nothing internal except fault. The bridge, the
// importers and the session builder all build on it.
//
// Key constraints:
//   - Int and Float are distinct variants; neither converts to the other
//   - *Map preserves insertion order; a repeated key keeps its first position
//     and takes the last value
//   - mapping keys are always text; integer host keys are rendered in decimal
//   - values are never mutated after they are handed to the bridge
package tvt
