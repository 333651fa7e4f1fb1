package deployer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// MockDeployer mocks the Deployer interface
type MockDeployer struct {
	mock.Mock
}

// CreateAccount mocks the CreateAccount method
func (m *MockDeployer) CreateAccount(ctx context.Context, keypair *interfaces.KeyPair, owner *interfaces.Pubkey) error {
	args := m.Called(ctx, keypair, owner)
	return args.Error(0)
}

// DeployProgram mocks the DeployProgram method
func (m *MockDeployer) DeployProgram(ctx context.Context, programDir string, keypair *interfaces.KeyPair) error {
	args := m.Called(ctx, programDir, keypair)
	return args.Error(0)
}

// ActivateProgram mocks the ActivateProgram method
func (m *MockDeployer) ActivateProgram(ctx context.Context, keypair *interfaces.KeyPair, programID interfaces.Pubkey) error {
	args := m.Called(ctx, keypair, programID)
	return args.Error(0)
}
