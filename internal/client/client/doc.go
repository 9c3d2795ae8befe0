// Package client is the Gatekeeper gRPC client. GRPCClient keeps the session
// token returned by Login and attaches it to every later call.
package client
