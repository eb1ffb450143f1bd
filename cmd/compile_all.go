package cmd

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	"github.com/Wyatt-Stanke/ctf/internal/builder"
	"github.com/Wyatt-Stanke/ctf/internal/challenge"
	"github.com/Wyatt-Stanke/ctf/internal/config"
	"github.com/Wyatt-Stanke/ctf/internal/directive"
	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
	"github.com/Wyatt-Stanke/ctf/internal/homepage"
)

var compileAllCmd = &cobra.Command{
	Use:   "compile-all",
	Short: "Discover and compile every challenge, then generate the homepage",
	Long: `Discover every challenge and group at the source root, compile each
challenge into <output>/<name>/, and generate the grouped homepage at
<output>/index.html.

A challenge that fails to compile is reported and skipped; the remaining
challenges still compile and the exit status is non-zero.`,
	RunE: runCompileAll,
}

func init() {
	rootCmd.AddCommand(compileAllCmd)

	compileAllCmd.Flags().StringP("output", "o", "dist", "output root directory")
	compileAllCmd.Flags().String("source", ".", "challenge source root")
	compileAllCmd.Flags().String("assets-dir", "", "directory overriding embedded templates and shared assets")
}

func runCompileAll(cmd *cobra.Command, args []string) error {
	viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	viper.BindPFlag("source", cmd.Flags().Lookup("source"))
	viper.BindPFlag("assets.dir", cmd.Flags().Lookup("assets-dir"))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := newLogger(cfg)

	fs := afero.NewOsFs()
	cache := assets.New(cfg.Assets.Dir)
	engine := directive.NewEngine(cache)
	b := builder.New(fs, engine, log)
	gen := homepage.New(fs, cache, log)

	root := filepath.ToSlash(filepath.Clean(cfg.Source))
	groups, err := challenge.DiscoverGroups(fs, root, cfg.Ignore)
	if err != nil {
		return fmt.Errorf("discover challenges: %w", err)
	}

	total := challenge.Count(groups)
	if total == 0 {
		return fmt.Errorf("no challenge directories found under %s", root)
	}
	fmt.Printf("Found %d challenge(s) in %d group(s)\n", total, len(groups))

	// Each challenge compiles into its own isolated output directory, so
	// one failure cannot corrupt another; failures are collected and the
	// batch keeps going.
	collector := ctferrors.NewCollector()
	for _, dir := range challenge.All(groups) {
		dest := path.Join(cfg.Output, path.Base(dir))
		fmt.Printf("Compiling %s/ -> %s\n", dir, dest)
		if _, err := b.CompileChallenge(dir, dest); err != nil {
			log.Error("challenge failed", "challenge", path.Base(dir), "error", err)
			collector.Add(path.Base(dir), err)
		}
	}

	fmt.Println("Generating homepage...")
	if err := gen.Generate(groups, cfg.Output); err != nil {
		return fmt.Errorf("generate homepage: %w", err)
	}

	if collector.HasErrors() {
		for _, ce := range collector.Errors() {
			fmt.Fprintf(os.Stderr, "error: %v\n", &ce)
		}
		return fmt.Errorf("%d of %d challenge(s) failed to compile", collector.Count(), total)
	}

	fmt.Printf("All done: %d challenge(s) compiled.\n", total)
	return nil
}
