// Package styleclient is the Go client SDK for the plat-style REST API,
// generated from the OpenAPI description by humaclient.
//
// Regenerate after changing any route or body type:
//
//	go generate ./pkg/styleclient
package styleclient

//go:generate go run ../../cmd/glstyle gen-client --data-dir ../../.data --output .
