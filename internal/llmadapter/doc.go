// Package llmadapter implements the LLM Adapter (C4): a stateless,
// re-entrant wrapper around an eino chat model that turns an augmented
// prompt into a validated wireframe.Document, enforcing a timeout and a
// bounded exponential-backoff retry policy.
package llmadapter
