// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
//
// Driven ports are what the core calls out to: embedding and LLM
// backends, the vector index, document and blob storage, and the
// document source. The core depends only on these interfaces, never
// on concrete adapters.
package driven
