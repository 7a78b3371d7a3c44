package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pvemcp/proxmox-mcp/internal/config"
	"github.com/pvemcp/proxmox-mcp/internal/logging"
	"github.com/pvemcp/proxmox-mcp/internal/mcp"
	"github.com/pvemcp/proxmox-mcp/internal/tools"
	"github.com/pvemcp/proxmox-mcp/pkg/proxmox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "proxmox-mcp",
	Short:   "MCP server exposing Proxmox VE operations as tools",
	Long:    `proxmox-mcp bridges the Model Context Protocol to a Proxmox VE cluster, exposing node, guest, storage, snapshot, backup, network and disk operations as MCP tools behind a permission gate.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("proxmox-mcp %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer() {
	// Baseline logger for early startup logs; reconfigured from the loaded
	// config below.
	logging.Init(logging.Config{Level: "info", Format: "auto"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	client, err := proxmox.NewClient(proxmox.ClientConfig{
		Host:        cfg.ProxmoxHost,
		Port:        cfg.ProxmoxPort,
		User:        cfg.ProxmoxUser,
		TokenName:   cfg.TokenName,
		TokenValue:  cfg.TokenValue,
		VerifySSL:   cfg.VerifySSL,
		Fingerprint: cfg.Fingerprint,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Proxmox client")
	}

	executor := tools.NewExecutor(tools.ExecutorConfig{
		API:           client,
		AllowElevated: cfg.AllowElevated,
	})

	if cfg.AllowElevated {
		log.Warn().Msg("Elevated permissions enabled; mutating tools are active")
	} else {
		log.Info().Msg("Running with read-only permissions; set PROXMOX_ALLOW_ELEVATED=true to unlock mutating tools")
	}

	server := mcp.NewServer(cfg.ListenAddr, executor)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().
		Str("version", Version).
		Str("addr", cfg.ListenAddr).
		Int("tools", len(executor.ListTools())).
		Msg("proxmox-mcp started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("MCP server failed")
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
