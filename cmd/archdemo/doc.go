// Package main (cmd/archdemo) implements the archdemo command line tool.
//
// archdemo provisions the Arch graffiti wall demo against an Arch network
// node and serves the result. Provisioning materializes the demo project
// from templates, registers the program and wall state key pairs, creates
// their on-chain accounts, deploys and activates the program, and writes
// the frontend environment file. Every step checks for prior work first,
// so a failed or interrupted run can simply be repeated.
//
// The tool provides three commands:
//
//   - setup: runs the provisioning flow end to end and prints the resulting
//     demo directory, program pubkey, wall account pubkey and RPC endpoint.
//
//   - serve: serves the provisioned frontend together with a read-only
//     deployment info API and health/drain endpoints for load balancers.
//
//   - keys list: prints the names and pubkeys held by the configured
//     key store.
//
// Configuration lives in a TOML file under the user config directory and is
// created with defaults on first run. Command-line flags override it, and
// the Arch node endpoint falls back to DNS SRV discovery on non-regtest
// networks before using the built-in regtest default.
//
// Example usage:
//
//     archdemo setup --rpc-url=http://localhost:9002/
//
//     archdemo serve --listen-addr=0.0.0.0:8080 --log-json
package main
