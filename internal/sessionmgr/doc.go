// Package sessionmgr implements the Session Manager (C5): the orchestration
// layer that serializes edits against a single session, drives the
// classify/resolve/prompt/generate/commit pipeline, and exposes session
// lifecycle operations (create, close, fork, share) on top of the State
// Store and Version Manager.
package sessionmgr
