// Package importer decodes structured text payloads into Tagged Value Trees.
//
// Three decoders share one contract: the whole payload is decoded before a
// value is returned, and any failure is a MALFORMED_INPUT (or
// DEPTH_EXCEEDED) fault.Error located in the input.
//
//   - JSON: goccy/go-json token stream, order-preserving objects, Int vs
//     Float chosen by the number's literal form
//   - CSV: encoding/csv records, header-keyed or positional, every field
//     kept as text; optional transcoding through golang.org/x/text
//   - YAML: gopkg.in/yaml.v3 node tree of a single document
package importer
