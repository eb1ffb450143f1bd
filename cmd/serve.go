package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	"github.com/Wyatt-Stanke/ctf/internal/config"
	"github.com/Wyatt-Stanke/ctf/internal/directive"
	"github.com/Wyatt-Stanke/ctf/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve <source>",
	Short: "Serve a challenge with live directive processing",
	Long: `Start the development server rooted at a challenge source directory.
Directives are applied per request against the live filesystem, so edits
show up on the next reload without a build step.

Examples:
  ctfc serve pipeline/                 # http://0.0.0.0:8000
  ctfc serve pipeline/ -p 3000
  ctfc serve pipeline/ --live-reload   # push reloads on source changes`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8000, "port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "host to bind to")
	serveCmd.Flags().Bool("live-reload", false, "reload connected browsers when the source changes")
	serveCmd.Flags().String("assets-dir", "", "directory overriding embedded templates and shared assets")
}

func runServe(cmd *cobra.Command, args []string) error {
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.live_reload", cmd.Flags().Lookup("live-reload"))
	viper.BindPFlag("assets.dir", cmd.Flags().Lookup("assets-dir"))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := newLogger(cfg)

	fs := afero.NewOsFs()
	// The dev server re-reads overridden assets per request so edits to
	// shared templates show without a restart.
	cache := assets.NewLive(cfg.Assets.Dir)
	engine := directive.NewEngine(cache)

	source := filepath.ToSlash(filepath.Clean(args[0]))
	srv, err := server.New(cfg, fs, source, engine, log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down.")
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", "error", err)
		}
		cancel()
	}()

	fmt.Printf("Serving %s at http://%s:%d  (Ctrl+C to stop)\n",
		source, cfg.Server.Host, cfg.Server.Port)
	return srv.Start(ctx)
}
