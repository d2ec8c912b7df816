// Package types defines the JSON bodies beacon writes for errors raised by
// the sidecar itself rather than by the upstream application.
package types
