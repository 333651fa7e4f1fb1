package interfaces

import (
	"context"
	"errors"
)

// ErrNetwork is returned when the Arch node cannot be reached or keeps
// failing after the configured retries. Errors the node itself reports are
// returned as-is, without this sentinel.
var ErrNetwork = errors.New("node unreachable")

// AccountCreator creates accounts on the Arch network.
type AccountCreator interface {
	// CreateAccount creates the on-chain account controlled by keypair.
	// A nil owner leaves the account owned by the system program.
	CreateAccount(ctx context.Context, keypair *KeyPair, owner *Pubkey) error
}

// Deployer uploads and activates programs on the Arch network. Both
// operations are idempotent on the node side, so callers may repeat them
// on every provisioning run.
type Deployer interface {
	AccountCreator

	// DeployProgram uploads the compiled program binary found under
	// programDir to the account controlled by keypair.
	DeployProgram(ctx context.Context, programDir string, keypair *KeyPair) error

	// ActivateProgram marks the program deployed at programID as executable.
	// The keypair authorizes the change; for self-owned programs it is the
	// pair whose pubkey is programID.
	ActivateProgram(ctx context.Context, keypair *KeyPair, programID Pubkey) error
}
