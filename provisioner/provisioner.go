// Package provisioner drives the end-to-end demo setup: project file trees,
// program identity, on-chain deployment and frontend wiring. Every step is
// guarded by an existence check, so a failed run resumes where it left off
// instead of starting over; nothing is rolled back.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/arch-demo-provisioner/envfile"
	"github.com/ruteri/arch-demo-provisioner/interfaces"
	"github.com/ruteri/arch-demo-provisioner/registry"
	"github.com/ruteri/arch-demo-provisioner/templates"
)

const (
	// programKeyBase seeds collision-free program key names: graffiti,
	// graffiti_1, graffiti_2, ...
	programKeyBase = "graffiti"

	// wallAccountName is the fixed name of the wall state account record.
	wallAccountName = "graffiti_wall_state"

	// DefaultDemoName is the project directory name under <base>/projects.
	DefaultDemoName = "demo"
)

// sharedLibraries are the template trees materialized once under the base
// directory and shared by every demo project.
var sharedLibraries = []string{"common", "program", "bip322"}

// Result reports where the demo landed and the identities it runs under.
type Result struct {
	DemoDir       string
	ProgramPubkey interfaces.Pubkey
	WallPubkey    interfaces.Pubkey
	RPCURL        string
}

// Provisioner wires the demo setup pipeline together. All fields except
// DemoName and Log are required.
type Provisioner struct {
	Network  string
	BaseDir  string
	DemoName string
	RPCURL   string

	Registry *registry.KeyRegistry
	Deployer interfaces.Deployer
	Source   interfaces.TemplateSource
	Log      *slog.Logger
}

// Do runs the pipeline: shared libraries, demo project tree, program
// identity, deployment, wall state account, frontend configuration.
func (p *Provisioner) Do(ctx context.Context) (*Result, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	if p.BaseDir == "" {
		return nil, fmt.Errorf("project directory not configured")
	}
	demoName := p.DemoName
	if demoName == "" {
		demoName = DefaultDemoName
	}

	if err := p.ensureSharedLibraries(ctx, log); err != nil {
		return nil, err
	}

	demoDir := filepath.Join(p.BaseDir, "projects", demoName)
	if err := p.ensureDemoProject(ctx, log, demoDir); err != nil {
		return nil, err
	}

	// All later paths derive from the demo root.
	if _, err := os.Stat(demoDir); err != nil {
		return nil, fmt.Errorf("failed to access demo directory %s: %w", demoDir, err)
	}

	envPath := filepath.Join(demoDir, "app", "frontend", ".env")
	programName, programPubkey, err := p.resolveProgramIdentity(ctx, log, envPath)
	if err != nil {
		return nil, err
	}

	keypair, err := p.Registry.KeypairFor(ctx, programName)
	if err != nil {
		return nil, err
	}

	programDir := filepath.Join(p.BaseDir, "program")
	log.Info("Deploying program",
		slog.String("name", programName),
		slog.String("pubkey", programPubkey.String()),
		slog.String("program_dir", programDir))
	if err := p.Deployer.DeployProgram(ctx, programDir, keypair); err != nil {
		return nil, err
	}
	if err := p.Deployer.ActivateProgram(ctx, keypair, programPubkey); err != nil {
		return nil, err
	}

	wallPubkey, err := p.resolveWallAccount(ctx, log, programPubkey)
	if err != nil {
		return nil, err
	}

	if err := envfile.Configure(envPath, p.RPCURL, programPubkey, wallPubkey, p.Network); err != nil {
		return nil, err
	}

	log.Info("Demo environment ready",
		slog.String("demo_dir", demoDir),
		slog.String("program_pubkey", programPubkey.String()),
		slog.String("wall_pubkey", wallPubkey.String()),
		slog.String("rpc_url", p.RPCURL))

	return &Result{
		DemoDir:       demoDir,
		ProgramPubkey: programPubkey,
		WallPubkey:    wallPubkey,
		RPCURL:        p.RPCURL,
	}, nil
}

// ensureSharedLibraries materializes the common, program and bip322 trees
// under the base directory. The common directory is the guard: when it
// exists, the shared libraries are assumed complete.
func (p *Provisioner) ensureSharedLibraries(ctx context.Context, log *slog.Logger) error {
	guard := filepath.Join(p.BaseDir, "common")
	if _, err := os.Stat(guard); err == nil {
		log.Debug("Shared libraries already set up", slog.String("dir", guard))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check shared libraries: %w", err)
	}

	log.Info("Setting up shared libraries", slog.String("base_dir", p.BaseDir))
	for _, name := range sharedLibraries {
		fsys, err := p.Source.Template(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to load template %s: %w", name, err)
		}
		if err := templates.Materialize(fsys, ".", filepath.Join(p.BaseDir, name)); err != nil {
			return fmt.Errorf("failed to materialize %s: %w", name, err)
		}
	}
	return nil
}

// ensureDemoProject creates the demo project on first run: the app tree,
// the Cargo manifest and the frontend env file.
func (p *Provisioner) ensureDemoProject(ctx context.Context, log *slog.Logger, demoDir string) error {
	if _, err := os.Stat(demoDir); err == nil {
		log.Debug("Demo project already set up", slog.String("dir", demoDir))
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check demo directory: %w", err)
	}

	log.Info("Creating demo project", slog.String("dir", demoDir))
	if err := os.MkdirAll(demoDir, 0755); err != nil {
		return fmt.Errorf("failed to create demo directory: %w", err)
	}

	fsys, err := p.Source.Template(ctx, "app")
	if err != nil {
		return fmt.Errorf("failed to load template app: %w", err)
	}
	if err := templates.Materialize(fsys, ".", filepath.Join(demoDir, "app")); err != nil {
		return fmt.Errorf("failed to materialize app: %w", err)
	}

	if err := writeManifest(demoDir); err != nil {
		return err
	}

	// The first run turns the shipped example into the live env file.
	example := filepath.Join(demoDir, "app", "frontend", ".env.example")
	if _, err := os.Stat(example); err == nil {
		if err := os.Rename(example, filepath.Join(demoDir, "app", "frontend", ".env")); err != nil {
			return fmt.Errorf("failed to rename env example: %w", err)
		}
	}
	return nil
}

// resolveProgramIdentity reuses the identity recorded in the frontend env
// file or mints a fresh key and on-chain account. A recorded identifier
// with no backing registry record is fatal: the store and the project tree
// no longer describe the same deployment.
func (p *Provisioner) resolveProgramIdentity(ctx context.Context, log *slog.Logger, envPath string) (string, interfaces.Pubkey, error) {
	env, err := envfile.Load(envPath)
	if err != nil {
		return "", interfaces.Pubkey{}, err
	}

	if recorded, _ := env.Get(envfile.KeyProgramPubkey); recorded != "" {
		pubkey, err := interfaces.PubkeyFromHex(recorded)
		if err != nil {
			return "", interfaces.Pubkey{}, fmt.Errorf("%w: malformed program pubkey in %s: %v", interfaces.ErrInconsistentState, envPath, err)
		}

		name, err := p.Registry.NameFor(ctx, pubkey)
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return "", interfaces.Pubkey{}, fmt.Errorf("%w: program pubkey %s has no registry record", interfaces.ErrInconsistentState, recorded)
		}
		if err != nil {
			return "", interfaces.Pubkey{}, err
		}

		log.Info("Reusing program identity",
			slog.String("name", name),
			slog.String("pubkey", recorded))
		return name, pubkey, nil
	}

	name, err := p.Registry.UniqueName(ctx, programKeyBase)
	if err != nil {
		return "", interfaces.Pubkey{}, err
	}

	log.Info("Creating program identity", slog.String("name", name))
	pubkey, err := p.Registry.Create(ctx, name, nil)
	if err != nil {
		return "", interfaces.Pubkey{}, err
	}
	return name, pubkey, nil
}

// resolveWallAccount reuses the wall state record or creates it owned by
// the program.
func (p *Provisioner) resolveWallAccount(ctx context.Context, log *slog.Logger, programPubkey interfaces.Pubkey) (interfaces.Pubkey, error) {
	exists, err := p.Registry.Exists(ctx, wallAccountName)
	if err != nil {
		return interfaces.Pubkey{}, err
	}
	if exists {
		log.Info("Using existing wall state account", slog.String("name", wallAccountName))
		return p.Registry.PubkeyFor(ctx, wallAccountName)
	}

	log.Info("Creating wall state account", slog.String("name", wallAccountName))
	return p.Registry.Create(ctx, wallAccountName, &programPubkey)
}
