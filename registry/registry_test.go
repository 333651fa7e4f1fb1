package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/arch-demo-provisioner/deployer"
	"github.com/ruteri/arch-demo-provisioner/interfaces"
	"github.com/ruteri/arch-demo-provisioner/keygen"
	"github.com/ruteri/arch-demo-provisioner/keystore"
)

func newTestRegistry(t *testing.T) (*KeyRegistry, interfaces.KeyStore, *deployer.MockDeployer) {
	t.Helper()
	store := keystore.NewMemoryKeyStore()
	md := &deployer.MockDeployer{}
	reg := NewKeyRegistry(store, md, keygen.NewRandomGenerator(), nil)
	return reg, store, md
}

func TestCreateRegistersKeyAndAccount(t *testing.T) {
	reg, store, md := newTestRegistry(t)
	md.On("CreateAccount", mock.Anything, mock.Anything, (*interfaces.Pubkey)(nil)).Return(nil)

	ctx := context.Background()
	pubkey, err := reg.Create(ctx, "graffiti", nil)
	require.NoError(t, err)
	assert.False(t, pubkey.IsZero())

	record, err := store.Get(ctx, "graffiti")
	require.NoError(t, err)
	assert.True(t, record.Pubkey().Equal(pubkey), "the stored key must back the returned pubkey")

	md.AssertNumberOfCalls(t, "CreateAccount", 1)
	sentKeypair := md.Calls[0].Arguments.Get(1).(*interfaces.KeyPair)
	assert.True(t, sentKeypair.Public().Equal(pubkey), "the account must be created for the persisted key")
}

func TestCreateForwardsOwner(t *testing.T) {
	reg, _, md := newTestRegistry(t)
	owner := interfaces.SystemProgram()
	md.On("CreateAccount", mock.Anything, mock.Anything, mock.MatchedBy(func(got *interfaces.Pubkey) bool {
		return got != nil && got.Equal(owner)
	})).Return(nil)

	_, err := reg.Create(context.Background(), "graffiti_wall_state", &owner)
	require.NoError(t, err)
	md.AssertExpectations(t)
}

func TestCreatePersistsKeyBeforeAccountCreation(t *testing.T) {
	reg, store, md := newTestRegistry(t)
	md.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("node unreachable"))

	ctx := context.Background()
	_, err := reg.Create(ctx, "graffiti", nil)
	require.Error(t, err)

	has, err := store.Has(ctx, "graffiti")
	require.NoError(t, err)
	assert.True(t, has, "the key must survive a failed account creation")
}

func TestCreateRejectsTakenName(t *testing.T) {
	reg, _, md := newTestRegistry(t)
	md.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	_, err := reg.Create(ctx, "graffiti", nil)
	require.NoError(t, err)

	_, err = reg.Create(ctx, "graffiti", nil)
	assert.ErrorIs(t, err, interfaces.ErrKeyExists)
	md.AssertNumberOfCalls(t, "CreateAccount", 1)
}

func TestLookups(t *testing.T) {
	reg, _, md := newTestRegistry(t)
	md.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	pubkey, err := reg.Create(ctx, "graffiti", nil)
	require.NoError(t, err)

	exists, err := reg.Exists(ctx, "graffiti")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = reg.ExistsPubkey(ctx, pubkey)
	require.NoError(t, err)
	assert.True(t, exists)

	name, err := reg.NameFor(ctx, pubkey)
	require.NoError(t, err)
	assert.Equal(t, "graffiti", name)

	got, err := reg.PubkeyFor(ctx, "graffiti")
	require.NoError(t, err)
	assert.True(t, got.Equal(pubkey))

	keypair, err := reg.KeypairFor(ctx, "graffiti")
	require.NoError(t, err)
	assert.True(t, keypair.Public().Equal(pubkey))
}

func TestLookupsMissing(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	ctx := context.Background()
	exists, err := reg.Exists(ctx, "graffiti")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = reg.ExistsPubkey(ctx, interfaces.NewUniquePubkey())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = reg.PubkeyFor(ctx, "graffiti")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	_, err = reg.KeypairFor(ctx, "graffiti")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)

	_, err = reg.NameFor(ctx, interfaces.NewUniquePubkey())
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestUniqueName(t *testing.T) {
	reg, _, md := newTestRegistry(t)
	md.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	ctx := context.Background()
	name, err := reg.UniqueName(ctx, "graffiti")
	require.NoError(t, err)
	assert.Equal(t, "graffiti", name, "an unused base name is returned as-is")

	_, err = reg.Create(ctx, "graffiti", nil)
	require.NoError(t, err)
	_, err = reg.Create(ctx, "graffiti_1", nil)
	require.NoError(t, err)

	name, err = reg.UniqueName(ctx, "graffiti")
	require.NoError(t, err)
	assert.Equal(t, "graffiti_2", name)
}
