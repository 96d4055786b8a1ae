// Package httpapi exposes the Session Manager over HTTP: one route per
// external operation in the design session engine's contract, chi-routed,
// CORS-enabled, and translating apperr.Kind into the right status code and
// error body on every failure path.
package httpapi
