// Package types defines the entities, ledger row model, result outcomes,
// configuration and standard error values shared by the boardtrack
// metadata store, ledger and status packages.
package types
