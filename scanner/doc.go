// Package scanner parses Wayland protocol XML descriptions and emits
// namespaced source definitions for them.
//
// The pipeline is a single-threaded pushdown recognizer over a byte stream:
// bytes feed a state machine that emits element events, a structural
// validator checks each event against the protocol schema while building an
// intermediate representation, and once the root element closes the
// finalized tree is walked by a deterministic emitter. The first invalid
// byte or event stops the parse with a ParseError carrying the position.
package scanner
