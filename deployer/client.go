// Package deployer implements the JSON-RPC client that performs node-side
// provisioning on an Arch network: account creation, program upload and
// program activation. Write requests are authorized with a Schnorr signature
// over a request digest.
package deployer

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

const (
	// DefaultCallTimeout bounds a single RPC attempt.
	DefaultCallTimeout = 30 * time.Second

	// DefaultMaxRetries bounds how many times a failed attempt is repeated.
	DefaultMaxRetries = 4

	// DefaultRetryInterval is the initial backoff delay between attempts.
	DefaultRetryInterval = 500 * time.Millisecond
)

// ClientConfig carries the settings for an Arch node client.
type ClientConfig struct {
	// RPCURL is the node endpoint, e.g. http://localhost:9002/.
	RPCURL string

	// CallTimeout bounds a single attempt. Zero means DefaultCallTimeout.
	CallTimeout time.Duration

	// MaxRetries bounds repeat attempts after the first. Zero means
	// DefaultMaxRetries.
	MaxRetries uint64

	// RetryInterval is the initial backoff delay. Zero means
	// DefaultRetryInterval.
	RetryInterval time.Duration

	// Log is the structured logger. Nil falls back to slog.Default().
	Log *slog.Logger
}

// Client talks JSON-RPC 2.0 to an Arch node. Every call runs under a
// per-attempt timeout and bounded exponential backoff. Errors the node
// itself reports are returned immediately; transport failures are retried
// and, once retries are exhausted, wrapped in interfaces.ErrNetwork.
type Client struct {
	rpc           *rpc.Client
	callTimeout   time.Duration
	maxRetries    uint64
	retryInterval time.Duration
	log           *slog.Logger
}

// NewClient connects to the node at cfg.RPCURL. HTTP connections are lazy,
// so only a malformed URL fails here.
func NewClient(cfg *ClientConfig) (*Client, error) {
	rpcClient, err := rpc.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %v", interfaces.ErrNetwork, cfg.RPCURL, err)
	}

	callTimeout := cfg.CallTimeout
	if callTimeout == 0 {
		callTimeout = DefaultCallTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	retryInterval := cfg.RetryInterval
	if retryInterval == 0 {
		retryInterval = DefaultRetryInterval
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		rpc:           rpcClient,
		callTimeout:   callTimeout,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		log:           log,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type createAccountRequest struct {
	Pubkey    interfaces.Pubkey  `json:"pubkey"`
	Owner     *interfaces.Pubkey `json:"owner,omitempty"`
	Signature string             `json:"signature"`
}

type deployProgramRequest struct {
	ProgramID interfaces.Pubkey `json:"program_id"`
	ELF       string            `json:"elf"`
	Signature string            `json:"signature"`
}

type activateProgramRequest struct {
	ProgramID interfaces.Pubkey `json:"program_id"`
	Signature string            `json:"signature"`
}

// CreateAccount creates the on-chain account controlled by keypair. A nil
// owner leaves the account owned by the system program. The node treats
// creation of an existing identical account as a no-op, so re-runs are safe.
func (c *Client) CreateAccount(ctx context.Context, keypair *interfaces.KeyPair, owner *interfaces.Pubkey) error {
	pubkey := keypair.Public()

	var payload []byte
	ownerStr := "system"
	if owner != nil {
		payload = owner.Bytes()
		ownerStr = owner.String()
	}

	signature, err := keypair.SignDigest(requestDigest("create_account", pubkey, payload))
	if err != nil {
		return err
	}

	req := &createAccountRequest{
		Pubkey:    pubkey,
		Owner:     owner,
		Signature: hex.EncodeToString(signature),
	}
	if err := c.call(ctx, "create_account", req); err != nil {
		return err
	}

	c.log.Info("Created account",
		slog.String("pubkey", pubkey.String()),
		slog.String("owner", ownerStr))
	return nil
}

// DeployProgram uploads the compiled program binary found under programDir
// to the account controlled by keypair. The node overwrites already deployed
// bytes, so re-runs are safe.
func (c *Client) DeployProgram(ctx context.Context, programDir string, keypair *interfaces.KeyPair) error {
	elf, binaryPath, err := ReadProgramBinary(programDir)
	if err != nil {
		return err
	}

	programID := keypair.Public()
	signature, err := keypair.SignDigest(requestDigest("deploy_program", programID, elf))
	if err != nil {
		return err
	}

	req := &deployProgramRequest{
		ProgramID: programID,
		ELF:       base64.StdEncoding.EncodeToString(elf),
		Signature: hex.EncodeToString(signature),
	}
	if err := c.call(ctx, "deploy_program", req); err != nil {
		return err
	}

	c.log.Info("Deployed program",
		slog.String("program_id", programID.String()),
		slog.String("binary", binaryPath),
		slog.Int("size", len(elf)))
	return nil
}

// ActivateProgram marks the program deployed at programID as executable,
// authorized by keypair. Activating an already executable program is a
// node-side no-op.
func (c *Client) ActivateProgram(ctx context.Context, keypair *interfaces.KeyPair, programID interfaces.Pubkey) error {
	signature, err := keypair.SignDigest(requestDigest("make_program_executable", programID, nil))
	if err != nil {
		return err
	}

	req := &activateProgramRequest{
		ProgramID: programID,
		Signature: hex.EncodeToString(signature),
	}
	if err := c.call(ctx, "make_program_executable", req); err != nil {
		return err
	}

	c.log.Info("Activated program", slog.String("program_id", programID.String()))
	return nil
}

// requestDigest is the value signed to authorize a node-side write: sha256
// over the method name, the subject pubkey and the method payload.
func requestDigest(method string, pubkey interfaces.Pubkey, payload []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write(pubkey.Bytes())
	h.Write(payload)

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// call invokes one JSON-RPC method under the client's timeout and retry
// policy.
func (c *Client) call(ctx context.Context, method string, params interface{}) error {
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		var result json.RawMessage
		err := c.rpc.CallContext(callCtx, &result, method, params)
		if err == nil {
			return nil
		}

		var nodeErr rpc.Error
		if errors.As(err, &nodeErr) {
			// The node understood and rejected the request; retrying
			// cannot change the outcome.
			return backoff.Permanent(err)
		}

		c.log.Warn("RPC call failed, will retry",
			slog.String("method", method),
			"err", err)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	if err == nil {
		return nil
	}

	var nodeErr rpc.Error
	if errors.As(err, &nodeErr) {
		return fmt.Errorf("%s rejected by node (code %d): %w", method, nodeErr.ErrorCode(), err)
	}
	return fmt.Errorf("%w: %s: %v", interfaces.ErrNetwork, method, err)
}
