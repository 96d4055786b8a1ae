// Package janitor implements the Janitor (C6): a background sweeper that
// expires sessions past their TTL, compacts version history past the
// retention window, and aggregates session/edit lifecycle events into
// daily counters.
package janitor
