package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/obsws/internal/config"
	"github.com/muurk/obsws/internal/discovery"
	"github.com/muurk/obsws/internal/logging"
	"github.com/muurk/obsws/internal/server"
	"github.com/muurk/obsws/internal/ui"
	"github.com/muurk/obsws/internal/urls"
	"github.com/muurk/obsws/internal/version"
	"github.com/muurk/obsws/internal/wizard/tui"
)

// Flags
var (
	configPath   string
	flagPort     int
	flagPassword string
	flagAuth     bool
	flagDebug    bool
	flagMetrics  bool
	flagMDNS     bool
	versionShort bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: OS config directory)")

	rootCmd.Flags().IntVar(&flagPort, "port", config.DefaultPort, "WebSocket listen port")
	rootCmd.Flags().StringVar(&flagPassword, "password", "", "Authentication password")
	rootCmd.Flags().BoolVar(&flagAuth, "auth", false, "Require the challenge-response handshake")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&flagMetrics, "metrics", false, "Serve Prometheus metrics on /metrics")
	rootCmd.Flags().BoolVar(&flagMDNS, "mdns", true, "Advertise the server via mDNS")

	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// resolveConfigPath returns the explicit --config path or the OS default.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// loadServeConfig reads the config file and applies any flags the user set
// on the command line. Flags the user did not touch never override the file.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = flagPort
	}
	if flags.Changed("password") {
		cfg.Server.Password = flagPassword
	}
	if flags.Changed("auth") {
		cfg.Server.AuthRequired = flagAuth
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = flagDebug
	}
	if flags.Changed("metrics") {
		cfg.Server.Metrics = flagMetrics
	}
	if flags.Changed("mdns") {
		cfg.Server.Discovery = flagMDNS
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe is the root command: start the server and run until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv.OnClientDisconnected = func(state server.SessionState, closeCode int) {
		logging.Info("Client disconnected",
			zap.Uint64("session_id", state.ID),
			zap.String("remote_addr", state.RemoteAddress),
			zap.Int("close_code", closeCode),
		)
	}
	srv.OnIdentifiedClientDisconnected = func(state server.SessionState, closeCode int) {
		logging.Info("Identified client disconnected",
			zap.Uint64("session_id", state.ID),
			zap.String("remote_addr", state.RemoteAddress),
			zap.Uint64("incoming_messages", state.IncomingMessages),
			zap.Uint64("outgoing_messages", state.OutgoingMessages),
			zap.Int("close_code", closeCode),
		)
	}

	if err := srv.Start(); err != nil {
		return err
	}

	logging.Info("Clients can connect with",
		zap.String("connect_string", srv.ConnectString()),
	)

	var advertiser *discovery.Advertiser
	if cfg.Server.Discovery {
		advertiser, err = discovery.Advertise("obsws", cfg.Server.Port, cfg.TXTRecords())
		if err != nil {
			// Advertisement is a convenience; the server runs without it
			logging.Warn("Failed to advertise server via mDNS", zap.Error(err))
		} else {
			logging.Info("Advertising server via mDNS",
				zap.String("service", discovery.ServiceType),
				zap.Int("port", cfg.Server.Port),
			)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("Received shutdown signal", zap.String("signal", sig.String()))

	if advertiser != nil {
		advertiser.Shutdown()
	}
	return srv.Stop()
}

// setupCmd launches the interactive configuration wizard
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive setup wizard",
	Long: `Launch the interactive setup wizard to write the server configuration.

The wizard walks through the listen port, authentication, and the optional
metrics and mDNS discovery features, then writes the YAML config file
atomically with user-only permissions.`,
	Example: `  # Write the config in the default location
  obsws-server setup

  # Write a config somewhere else
  obsws-server setup --config ./obsws.yaml`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	if !ui.IsInteractive() {
		return fmt.Errorf("setup needs an interactive terminal; edit the config file directly instead (see %s)",
			urls.ConfigurationGuide)
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Println(ui.RenderErrorResult("Existing configuration is invalid", err.Error(),
			"The wizard will start from defaults and rewrite the file."))
		cfg = config.New()
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if !ui.ConfirmConfigOverwrite(path) {
			return nil
		}
	}

	// The wizard writes with SaveTo, which does not create directories
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	saved, err := tui.Run(cfg, path)
	if err != nil {
		return err
	}
	if !saved {
		fmt.Println("Setup cancelled; nothing was written.")
		return nil
	}

	fmt.Println(ui.RenderSuccessResult("Configuration saved",
		[]ui.Detail{{Key: "Config", Value: path}},
		"Run 'obsws-server' to start the server.",
		"Run 'obsws-server connect-info' to see the connect string.",
	))
	return nil
}

// connectInfoCmd prints the connect string without starting the server
var connectInfoCmd = &cobra.Command{
	Use:   "connect-info",
	Short: "Print the connect string for the configured server",
	Long: `Print the connect string clients use to reach this server.

The string has the form "obswebsocket|<ip>:<port>" with the password appended
as a third segment when authentication is enabled. The server does not need
to be running.`,
	RunE: runConnectInfo,
}

func runConnectInfo(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	authState := "disabled"
	if cfg.Server.AuthRequired {
		authState = "enabled"
	}

	header := ui.NewHeader("Connection Info", "obsws-server connect-info", map[string]string{
		"Config":         path,
		"Port":           strconv.Itoa(cfg.Server.Port),
		"Authentication": authState,
	})
	fmt.Println(header.Render())
	fmt.Println()

	fmt.Println(ui.RenderSuccessResult("Server reachable at",
		[]ui.Detail{
			{Key: "Connect string", Value: srv.ConnectString()},
			{Key: "Address", Value: fmt.Sprintf("%s:%d", discovery.LocalAddress(), cfg.Server.Port)},
		},
		"Clients paste the connect string into their tool to connect.",
		"Protocol reference: "+urls.ProtocolReference,
	))
	return nil
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(version.Version)
			return
		}
		fmt.Printf("obsws-server %s\n", version.Full())
	},
}
