package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	"github.com/Wyatt-Stanke/ctf/internal/builder"
	"github.com/Wyatt-Stanke/ctf/internal/config"
	"github.com/Wyatt-Stanke/ctf/internal/directive"
)

var compileCmd = &cobra.Command{
	Use:   "compile <source>",
	Short: "Apply directives and output a single challenge",
	Long: `Compile one challenge source directory into <output>/<name>/.

The output directory is cleared and fully regenerated on every run.

Examples:
  ctfc compile pipeline/              # Writes dist/pipeline/
  ctfc compile pipeline/ -o public    # Writes public/pipeline/`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringP("output", "o", "dist", "output root directory")
	compileCmd.Flags().String("assets-dir", "", "directory overriding embedded templates and shared assets")
}

func runCompile(cmd *cobra.Command, args []string) error {
	// Bound here rather than in init: several commands share the "output"
	// key and the active command's flag must win.
	viper.BindPFlag("output", cmd.Flags().Lookup("output"))
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

	source := filepath.ToSlash(filepath.Clean(args[0]))
	dest := filepath.ToSlash(filepath.Join(cfg.Output, filepath.Base(source)))

	fmt.Printf("Compiling %s -> %s\n", source, dest)
	result, err := b.CompileChallenge(source, dest)
	if err != nil {
		return fmt.Errorf("compile %s: %w", source, err)
	}
	fmt.Printf("Done: %d copied, %d transformed, %d skipped.\n",
		result.Copied, result.Transformed, result.Skipped)
	return nil
}
