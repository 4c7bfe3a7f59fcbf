package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"placeclient/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type flags struct {
	envFile      string
	wsURL        string
	tokenURL     string
	token        string
	origin       string
	canvasWidth  int
	canvasHeight int
	viewWidth    int
	viewHeight   int
	redisAddr    string
	redisKey     string
	inspectAddr  string
	debug        bool
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "placeclient",
		Short: "Terminal client for a shared pixel canvas",
		Long: `placeclient connects to a place style canvas server, keeps a local
copy of the canvas in sync and lets you pan, zoom and place pixels
from the terminal.

Settings come from the environment (and .env), flags override them.

Examples:
  placeclient
  placeclient --ws-url=ws://localhost:8080/ws --token-url=""
  placeclient --redis-addr=localhost:6379 --inspect-addr=:9090`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(envFiles(f.envFile)...); err != nil {
				return err
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f.token, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.envFile, "env-file", "", "Extra .env file to load (default ./.env)")
	fs.StringVar(&f.wsURL, "ws-url", "", "WebSocket endpoint of the canvas server")
	fs.StringVar(&f.tokenURL, "token-url", "", "Endpoint that hands out auth tokens, empty for view only")
	fs.StringVar(&f.token, "token", "", "Auth token to use instead of fetching one")
	fs.StringVar(&f.origin, "origin", "", "Origin header sent with the handshake")
	fs.IntVar(&f.canvasWidth, "canvas-width", 0, "Canvas width in cells")
	fs.IntVar(&f.canvasHeight, "canvas-height", 0, "Canvas height in cells")
	fs.IntVar(&f.viewWidth, "view-width", 0, "Viewport width in screen pixels")
	fs.IntVar(&f.viewHeight, "view-height", 0, "Viewport height in screen pixels")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "Mirror the canvas into Redis at this address")
	fs.StringVar(&f.redisKey, "redis-key", "", "Redis key holding the mirrored canvas")
	fs.StringVar(&f.inspectAddr, "inspect-addr", "", "Serve /pixels, /canvas.png, /status and /metrics here")
	fs.BoolVar(&f.debug, "debug", false, "Log every frame")

	return cmd
}

func envFiles(extra string) []string {
	if extra == "" {
		return nil
	}
	return []string{extra}
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("ws-url") {
		cfg.WSURL = f.wsURL
	}
	if set("token-url") {
		cfg.TokenURL = f.tokenURL
	}
	if set("origin") {
		cfg.Origin = f.origin
	}
	if set("canvas-width") {
		cfg.CanvasWidth = f.canvasWidth
	}
	if set("canvas-height") {
		cfg.CanvasHeight = f.canvasHeight
	}
	if set("view-width") {
		cfg.ViewWidth = f.viewWidth
	}
	if set("view-height") {
		cfg.ViewHeight = f.viewHeight
	}
	if set("redis-addr") {
		cfg.RedisAddress = f.redisAddr
	}
	if set("redis-key") {
		cfg.RedisKey = f.redisKey
	}
	if set("inspect-addr") {
		cfg.InspectAddr = f.inspectAddr
	}
	if set("debug") {
		cfg.Debug = f.debug
	}
}
