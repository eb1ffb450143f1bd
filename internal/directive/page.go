package directive

import (
	"html"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	"github.com/Wyatt-Stanke/ctf/internal/challenge"
	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
)

// challengePage wraps the marked file's content in the challenge page
// template: page shell, difficulty badge, flag submission form, shared
// stylesheet and script. Metadata comes from the challenge's
// .challenge.json, looked up in the file's own directory first and then in
// ancestors up to the source root (the conventional layout keeps the body in
// a challenge/ subdirectory below the metadata).
func (e *Engine) challengePage(_ Decl, content []byte, ctx Context) (Result, error) {
	metaDir, ok := findMetaDir(ctx.Fs, path.Dir(ctx.Path), ctx.Root)
	if !ok {
		return Result{}, ctferrors.MissingDependency(ctx.Path, challenge.MetaFileName)
	}

	meta, err := challenge.LoadMeta(ctx.Fs, metaDir)
	if err != nil {
		return Result{}, ctferrors.MalformedInput(path.Join(metaDir, challenge.MetaFileName), err)
	}

	tpl, err := e.assets.ChallengeTemplate()
	if err != nil {
		return Result{}, err
	}
	css, err := e.assets.SharedCSS()
	if err != nil {
		return Result{}, err
	}
	js, err := e.assets.SharedJS()
	if err != nil {
		return Result{}, err
	}

	page, err := assets.ExpandPlaceholders("challenge.html", tpl, map[string]string{
		"TITLE":      html.EscapeString(meta.Title),
		"DIFFICULTY": html.EscapeString(meta.Difficulty),
		"DIFF_COLOR": challenge.DifficultyColor(meta.Difficulty),
		"SLUG":       html.EscapeString(meta.Slug),
		"FLAG_HASH":  meta.FlagHash,
		"BODY":       strings.TrimSpace(string(StripMarker(content))),
		"SHARED_CSS": css,
		"SHARED_JS":  js,
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Action: ActionWrite, Data: []byte(page)}, nil
}

// findMetaDir walks from dir up to root (inclusive) looking for the
// directory that holds .challenge.json.
func findMetaDir(fs afero.Fs, dir, root string) (string, bool) {
	dir = path.Clean(dir)
	root = path.Clean(root)

	for {
		if ok, _ := afero.Exists(fs, path.Join(dir, challenge.MetaFileName)); ok {
			return dir, true
		}
		if dir == root {
			return "", false
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
