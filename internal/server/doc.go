// Package server hosts the Fiber HTTP application shared by the proxy and
// the admin surface: request-id middleware, panic recovery, JSON error
// rendering and the split between admin paths (/-/...) and proxied paths.
package server
