// Package builder compiles a challenge source tree into a deployable output
// tree: files are copied byte-for-byte except where a first-line directive
// requests transformation or exclusion.
//
// Every compile is a full regeneration. The output directory is cleared
// first and the builder is its sole writer for the duration, so compiling
// the same source tree twice yields byte-identical output.
package builder

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/Wyatt-Stanke/ctf/internal/challenge"
	"github.com/Wyatt-Stanke/ctf/internal/directive"
	"github.com/Wyatt-Stanke/ctf/internal/logging"
)

// Builder compiles challenge source trees.
type Builder struct {
	fs     afero.Fs
	engine *directive.Engine
	log    logging.Logger
}

// New creates a builder over fs using the given directive engine.
func New(fs afero.Fs, engine *directive.Engine, log logging.Logger) *Builder {
	return &Builder{fs: fs, engine: engine, log: log.WithComponent("builder")}
}

// CompileResult summarizes one challenge compile.
type CompileResult struct {
	Copied      int
	Transformed int
	Skipped     int
}

// Total returns the number of source files visited.
func (r *CompileResult) Total() int {
	return r.Copied + r.Transformed + r.Skipped
}

// CompileChallenge builds src into dst. dst is removed first if it exists so
// the output is always a fresh snapshot of the source with directives
// applied. Metadata files and hidden markdown never reach the output,
// regardless of directive; no_include files are skipped; everything else is
// copied or transformed preserving its relative path. Directories are
// created lazily on first write, which prunes directories whose entire
// contents are excluded.
func (b *Builder) CompileChallenge(src, dst string) (*CompileResult, error) {
	src = path.Clean(src)
	dst = path.Clean(dst)

	if exists, err := afero.DirExists(b.fs, src); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("source directory %s does not exist", src)
	}

	if err := b.fs.RemoveAll(dst); err != nil {
		return nil, fmt.Errorf("clear output directory: %w", err)
	}

	files, err := b.sourceFiles(src)
	if err != nil {
		return nil, err
	}

	result := &CompileResult{}
	for _, rel := range files {
		if err := b.compileFile(src, dst, rel, result); err != nil {
			return nil, err
		}
	}

	b.log.Info("challenge compiled",
		"source", src,
		"copied", result.Copied,
		"transformed", result.Transformed,
		"skipped", result.Skipped)
	return result, nil
}

// sourceFiles walks src and returns every regular file as a sorted relative
// path. Sorted order keeps compile logs and any order-dependent behavior
// stable across runs.
func (b *Builder) sourceFiles(src string) ([]string, error) {
	var files []string
	err := afero.Walk(b.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(p, src)
		rel = strings.TrimPrefix(rel, "/")
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (b *Builder) compileFile(src, dst, rel string, result *CompileResult) error {
	name := path.Base(rel)
	srcPath := path.Join(src, rel)

	// Compiler metadata and author-only documentation never ship, even if
	// some directive marker appears inside them.
	if challenge.IsExcludedName(name) {
		b.log.Debug("skip", "file", rel, "reason", "metadata")
		result.Skipped++
		return nil
	}

	decl, found := directive.DetectFile(b.fs, srcPath)
	if !found {
		if err := b.copyFile(srcPath, path.Join(dst, rel)); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		b.log.Debug("copy", "file", rel)
		result.Copied++
		return nil
	}

	content, err := afero.ReadFile(b.fs, srcPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}

	ctx := directive.Context{
		Fs:        b.fs,
		Root:      src,
		Path:      srcPath,
		URLPrefix: urlPrefix(rel),
	}
	if decl.Directive == directive.DirectoryListing {
		entries, err := directive.ReadEntries(b.fs, path.Dir(srcPath))
		if err != nil {
			return fmt.Errorf("list %s: %w", path.Dir(rel), err)
		}
		ctx.Entries = entries
	}

	res, err := b.engine.Apply(decl, content, ctx)
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", decl.Directive, rel, err)
	}

	switch res.Action {
	case directive.ActionExclude:
		b.log.Debug("skip", "file", rel, "directive", decl.Directive.String())
		result.Skipped++
		return nil
	case directive.ActionPassthrough:
		if err := b.copyFile(srcPath, path.Join(dst, rel)); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		result.Copied++
		return nil
	default:
		if err := b.writeFile(path.Join(dst, rel), res.Data); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
		b.log.Debug("transform", "file", rel, "directive", decl.Directive.String())
		result.Transformed++
		return nil
	}
}

func (b *Builder) copyFile(srcPath, dstPath string) error {
	data, err := afero.ReadFile(b.fs, srcPath)
	if err != nil {
		return err
	}
	return b.writeFile(dstPath, data)
}

func (b *Builder) writeFile(dstPath string, data []byte) error {
	if err := b.fs.MkdirAll(path.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(b.fs, dstPath, data, 0o644)
}

// urlPrefix maps a source-relative file path to the URL path of its
// directory, ending in "/".
func urlPrefix(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return "/"
	}
	return "/" + dir + "/"
}
