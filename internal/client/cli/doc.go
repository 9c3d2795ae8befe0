// Package cli provides the interactive Gatekeeper command-line client.
//
// It wires configuration, the gRPC client and an interactive REPL. A
// background watcher pings the server and shows whether it is reachable.
//
// Commands:
//   - register, login, logout, whoami
//   - profile: edit display name and profile text
//   - avatar <file>: upload an avatar image
//   - users [page], delete <id>: administrator commands
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
