// Package util holds small string helpers shared by the config loader,
// the HTTP middleware and the startup log.
package util
