package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2" // imports as package "cli"

	"github.com/ruteri/arch-demo-provisioner/cmd/flags"
	"github.com/ruteri/arch-demo-provisioner/config"
	"github.com/ruteri/arch-demo-provisioner/deployer"
	"github.com/ruteri/arch-demo-provisioner/httpserver"
	"github.com/ruteri/arch-demo-provisioner/interfaces"
	"github.com/ruteri/arch-demo-provisioner/keygen"
	"github.com/ruteri/arch-demo-provisioner/keystore"
	"github.com/ruteri/arch-demo-provisioner/noderesolver"
	"github.com/ruteri/arch-demo-provisioner/provisioner"
	"github.com/ruteri/arch-demo-provisioner/registry"
	"github.com/ruteri/arch-demo-provisioner/templates"
)

func main() {
	app := &cli.App{
		Name:  "archdemo",
		Usage: "provision and serve the Arch graffiti wall demo",
		Flags: flags.CommonFlags,
		Commands: []*cli.Command{
			{
				Name:   "setup",
				Usage:  "provision the graffiti wall demo end to end",
				Flags:  []cli.Flag{flags.RpcURLFlag, flags.DemoNameFlag},
				Action: runSetup,
			},
			{
				Name:   "serve",
				Usage:  "serve the provisioned demo frontend and deployment API",
				Flags:  []cli.Flag{flags.ListenAddrFlag, flags.DemoDirFlag, flags.PprofFlag, flags.DrainSecondsFlag},
				Action: runServe,
			},
			{
				Name:  "keys",
				Usage: "inspect the key registry",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "list registered key names and pubkeys",
						Action: runKeysList,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runSetup(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		return err
	}
	if cfg.ProjectDir() == "" {
		return fmt.Errorf("project.directory is not set in %s", cfg.Path())
	}

	resolver := &noderesolver.Resolver{
		Network:       cfg.Network(),
		ConfiguredURL: cfg.LeaderRPCEndpoint(),
		SeedDomain:    cfg.SeedDomain(),
		Log:           logger,
	}
	rpcURL := resolver.Resolve(cCtx.Context, cCtx.String(flags.RpcURLFlag.Name))
	logger.Info("Using Arch node RPC endpoint", "url", rpcURL)

	storeLocation, err := interfaces.NewLocation(cfg.KeystoreURI())
	if err != nil {
		logger.Error("Invalid keystore location", "err", err, "uri", cfg.KeystoreURI())
		return err
	}
	store, err := keystore.NewStoreFactory(logger).StoreFor(storeLocation)
	if err != nil {
		logger.Error("Failed to open key store", "err", err)
		return err
	}

	sourceLocation, err := interfaces.NewLocation(cfg.TemplateSourceURI())
	if err != nil {
		logger.Error("Invalid template source location", "err", err, "uri", cfg.TemplateSourceURI())
		return err
	}
	source, err := templates.NewSourceFactory(logger).SourceFor(sourceLocation)
	if err != nil {
		logger.Error("Failed to open template source", "err", err)
		return err
	}
	defer source.Close()

	client, err := deployer.NewClient(&deployer.ClientConfig{RPCURL: rpcURL, Log: logger})
	if err != nil {
		logger.Error("Failed to connect to Arch node", "err", err)
		return err
	}
	defer client.Close()

	prov := &provisioner.Provisioner{
		Network:  cfg.Network(),
		BaseDir:  cfg.ProjectDir(),
		DemoName: cCtx.String(flags.DemoNameFlag.Name),
		RPCURL:   rpcURL,
		Registry: registry.NewKeyRegistry(store, client, keygen.NewRandomGenerator(), logger),
		Deployer: client,
		Source:   source,
		Log:      logger,
	}

	res, err := prov.Do(cCtx.Context)
	if err != nil {
		logger.Error("Provisioning failed", "err", err)
		return err
	}

	fmt.Printf("demo directory:      %s\n", res.DemoDir)
	fmt.Printf("program pubkey:      %s\n", res.ProgramPubkey)
	fmt.Printf("wall account pubkey: %s\n", res.WallPubkey)
	fmt.Printf("rpc endpoint:        %s\n", res.RPCURL)
	return nil
}

func runServe(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	demoDir := cCtx.String(flags.DemoDirFlag.Name)
	if demoDir == "" {
		cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
		if err != nil {
			logger.Error("Failed to load config", "err", err)
			return err
		}
		if cfg.ProjectDir() == "" {
			return fmt.Errorf("project.directory is not set in %s and no --demo-dir given", cfg.Path())
		}
		demoDir = filepath.Join(cfg.ProjectDir(), "projects", provisioner.DefaultDemoName)
	}

	handler, err := httpserver.NewHandler(demoDir, logger)
	if err != nil {
		logger.Error("Failed to load provisioned demo", "err", err)
		return err
	}

	info := handler.Info()
	logger.Info("Serving provisioned demo",
		"demoDir", demoDir,
		"programPubkey", info.ProgramPubkey.String(),
		"network", info.Network,
	)

	srv := httpserver.New(flags.ConfigureServer(cCtx, logger), handler)
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	// Wait until program is stopped
	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

func runKeysList(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	cfg, err := config.Load(cCtx.String(flags.ConfigFlag.Name))
	if err != nil {
		logger.Error("Failed to load config", "err", err)
		return err
	}

	location, err := interfaces.NewLocation(cfg.KeystoreURI())
	if err != nil {
		logger.Error("Invalid keystore location", "err", err, "uri", cfg.KeystoreURI())
		return err
	}
	store, err := keystore.NewStoreFactory(logger).StoreFor(location)
	if err != nil {
		logger.Error("Failed to open key store", "err", err)
		return err
	}

	names, err := store.List(cCtx.Context)
	if err != nil {
		logger.Error("Failed to list keys", "err", err)
		return err
	}

	for _, name := range names {
		record, err := store.Get(cCtx.Context, name)
		if err != nil {
			return fmt.Errorf("failed to read key %s: %w", name, err)
		}
		fmt.Printf("%s\t%s\n", name, record.Pubkey())
	}
	return nil
}
