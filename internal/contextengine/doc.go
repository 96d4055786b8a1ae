// Package contextengine implements the Context Engine: deterministic prompt
// classification, anaphoric reference resolution against a session's
// wireframe and context ring, and augmented-prompt assembly for the LLM
// Adapter.
//
// Every exported function here is a pure function of its inputs: given
// identical arguments they must produce identical results, since the
// Session Manager relies on that determinism to reason about retries.
package contextengine
