package deployer

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// rpcCall is one JSON-RPC request captured by the test server.
type rpcCall struct {
	Method string
	Params []json.RawMessage
}

type rpcRecorder struct {
	mu    sync.Mutex
	calls []rpcCall
	count atomic.Int32
}

func (r *rpcRecorder) add(c rpcCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *rpcRecorder) all() []rpcCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rpcCall(nil), r.calls...)
}

// newRPCServer runs a JSON-RPC endpoint that fails the first failures
// requests at the transport level. respond may return a JSON-RPC error
// object to reject a method, or "" to answer with a null result.
func newRPCServer(t *testing.T, failures int32, respond func(method string) (errBody string)) (*httptest.Server, *rpcRecorder) {
	t.Helper()

	rec := &rpcRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec.count.Inc() <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		rec.add(rpcCall{Method: req.Method, Params: req.Params})

		w.Header().Set("Content-Type", "application/json")
		if errBody := respond(req.Method); errBody != "" {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":%s}`, req.ID, errBody)
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":null}`, req.ID)
	}))
	t.Cleanup(srv.Close)

	return srv, rec
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(&ClientConfig{
		RPCURL:        url,
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
		Log:           slog.Default(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClientRetriesTransportErrors(t *testing.T) {
	srv, rec := newRPCServer(t, 2, func(string) string { return "" })
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)

	require.NoError(t, client.CreateAccount(context.Background(), keypair, nil))
	assert.Equal(t, int32(3), rec.count.Load(), "two transport failures then success means three requests")
}

func TestClientDoesNotRetryNodeErrors(t *testing.T) {
	srv, rec := newRPCServer(t, 0, func(string) string {
		return `{"code":-32602,"message":"account already exists"}`
	})
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)

	err = client.CreateAccount(context.Background(), keypair, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrNetwork, "node rejections are not network errors")
	assert.Contains(t, err.Error(), "account already exists")
	assert.Equal(t, int32(1), rec.count.Load(), "node rejections must not be retried")
}

func TestClientWrapsExhaustedRetries(t *testing.T) {
	srv, rec := newRPCServer(t, 1000, func(string) string { return "" })
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)

	err = client.CreateAccount(context.Background(), keypair, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
	assert.Equal(t, int32(4), rec.count.Load(), "initial attempt plus three retries")
}

func TestCreateAccountSendsOwner(t *testing.T) {
	srv, rec := newRPCServer(t, 0, func(string) string { return "" })
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)
	owner := interfaces.SystemProgram()

	require.NoError(t, client.CreateAccount(context.Background(), keypair, &owner))

	calls := rec.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "create_account", calls[0].Method)
	require.Len(t, calls[0].Params, 1)

	var req createAccountRequest
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &req))
	assert.True(t, req.Pubkey.Equal(keypair.Public()))
	require.NotNil(t, req.Owner)
	assert.True(t, req.Owner.Equal(owner))

	assertValidSignature(t, req.Signature, keypair, requestDigest("create_account", keypair.Public(), owner.Bytes()))
}

func TestDeployAndActivateProgram(t *testing.T) {
	srv, rec := newRPCServer(t, 0, func(string) string { return "" })
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)

	programDir := t.TempDir()
	elf := []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x01}
	require.NoError(t, os.WriteFile(filepath.Join(programDir, "program.so"), elf, 0644))

	ctx := context.Background()
	require.NoError(t, client.DeployProgram(ctx, programDir, keypair))
	require.NoError(t, client.ActivateProgram(ctx, keypair, keypair.Public()))

	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "deploy_program", calls[0].Method)
	assert.Equal(t, "make_program_executable", calls[1].Method)

	var deploy deployProgramRequest
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &deploy))
	assert.True(t, deploy.ProgramID.Equal(keypair.Public()))

	sent, err := base64.StdEncoding.DecodeString(deploy.ELF)
	require.NoError(t, err)
	assert.Equal(t, elf, sent, "the binary must arrive unmodified")

	assertValidSignature(t, deploy.Signature, keypair, requestDigest("deploy_program", keypair.Public(), elf))

	var activate activateProgramRequest
	require.NoError(t, json.Unmarshal(calls[1].Params[0], &activate))
	assert.True(t, activate.ProgramID.Equal(keypair.Public()))
	assertValidSignature(t, activate.Signature, keypair, requestDigest("make_program_executable", keypair.Public(), nil))
}

func TestDeployProgramRequiresBinary(t *testing.T) {
	srv, rec := newRPCServer(t, 0, func(string) string { return "" })
	client := newTestClient(t, srv.URL)

	keypair, err := interfaces.NewKeyPair()
	require.NoError(t, err)

	err = client.DeployProgram(context.Background(), t.TempDir(), keypair)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build the program first")
	assert.Equal(t, int32(0), rec.count.Load(), "a missing binary must fail before any network traffic")
}

// assertValidSignature checks a hex Schnorr signature against the signer's
// x-only pubkey and the expected digest.
func assertValidSignature(t *testing.T, sigHex string, keypair *interfaces.KeyPair, digest [32]byte) {
	t.Helper()

	raw, err := hex.DecodeString(sigHex)
	require.NoError(t, err)

	sig, err := schnorr.ParseSignature(raw)
	require.NoError(t, err)

	pub, err := schnorr.ParsePubKey(keypair.Public().Bytes())
	require.NoError(t, err)
	assert.True(t, sig.Verify(digest[:], pub), "signature must cover the request digest")
}
