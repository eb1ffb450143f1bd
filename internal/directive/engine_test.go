package directive

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
)

func newTestEngine() *Engine {
	return NewEngine(assets.New(""))
}

func apply(t *testing.T, e *Engine, firstLine, body string, ctx Context) (Result, error) {
	t.Helper()
	content := firstLine + "\n" + body
	decl, found := Detect(firstLine)
	require.True(t, found, "directive not detected in %q", firstLine)
	return e.Apply(decl, []byte(content), ctx)
}

func TestJSONMinifyRoundTrip(t *testing.T) {
	e := newTestEngine()

	input := `{
  "title": "Pipeline",
  "steps": [1, 2.5, -3],
  "nested": { "b": true, "a": null },
  "text": "spaces  stay  inside strings"
}`
	res, err := apply(t, e, "// COMPILER: json_minify", input, Context{Path: "cfg.json"})
	require.NoError(t, err)
	require.Equal(t, ActionWrite, res.Action)

	minified := strings.TrimSuffix(string(res.Data), "\n")

	// Semantic round trip: re-parsing yields a deep-equal value.
	var original, reparsed any
	require.NoError(t, json.Unmarshal([]byte(input), &original))
	require.NoError(t, json.Unmarshal([]byte(minified), &reparsed))
	assert.Equal(t, original, reparsed)

	// No insignificant whitespace remains.
	assert.NotContains(t, minified, "\n")
	assert.NotContains(t, minified, ": ")
	assert.NotContains(t, minified, ", ")

	// Key order is preserved, not sorted.
	assert.Less(t, strings.Index(minified, `"b"`), strings.Index(minified, `"a"`))

	// Whitespace inside string values is untouched.
	assert.Contains(t, minified, "spaces  stay  inside strings")
}

func TestJSONMinifyMalformed(t *testing.T) {
	e := newTestEngine()

	_, err := apply(t, e, "// COMPILER: json_minify", `{"broken": `, Context{Path: "bad.json"})
	require.Error(t, err)
	assert.True(t, ctferrors.IsKind(err, ctferrors.KindMalformedInput))
}

func TestHTMLMinifyPreservesScriptBytes(t *testing.T) {
	e := newTestEngine()

	script := "\n  function f( a , b ) {\n      return a   +   b;\n  }\n  // comment with    spacing\n"
	body := "<html>\n  <head>\n    <!-- a comment to strip -->\n    <style>\n.x   { color : red }\n</style>\n  </head>\n  <body>\n    <p>\n      hello   world\n    </p>\n    <pre>  two  spaces\n\ttab</pre>\n    <script>" + script + "</script>\n  </body>\n</html>\n"

	res, err := apply(t, e, "<!-- COMPILER: html_minify -->", body, Context{Path: "index.html"})
	require.NoError(t, err)
	require.Equal(t, ActionWrite, res.Action)
	out := string(res.Data)

	// The core invariant: script, style, and pre interiors are
	// byte-identical.
	assert.Contains(t, out, script)
	assert.Contains(t, out, "\n.x   { color : red }\n")
	assert.Contains(t, out, "<pre>  two  spaces\n\ttab</pre>")

	// Comments are stripped and whitespace elsewhere collapses.
	assert.NotContains(t, out, "a comment to strip")
	assert.NotContains(t, out, "hello   world")
	assert.Contains(t, out, "hello world")

	// The directive marker never ships.
	assert.NotContains(t, out, "COMPILER")
}

func TestNoIncludeExcludes(t *testing.T) {
	e := newTestEngine()

	res, err := apply(t, e, "// COMPILER: no_include", "secret source", Context{Path: "secret.js"})
	require.NoError(t, err)
	assert.Equal(t, ActionExclude, res.Action)
}

func TestBase64Bundle(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := "console.log('hidden');\nconsole.log(\"second line\");\n"
	require.NoError(t, afero.WriteFile(fs, "chal/js/_payload.js",
		[]byte("// COMPILER: no_include\n"+payload), 0o644))

	e := newTestEngine()
	res, err := apply(t, e, "// COMPILER: base64_bundle _payload.js",
		"/* loader preamble */\n", Context{
			Fs:   fs,
			Root: "chal",
			Path: "chal/js/loader.js",
		})
	require.NoError(t, err)
	require.Equal(t, ActionWrite, res.Action)
	out := string(res.Data)

	// Content after the marker survives, and the payload plaintext does
	// not appear anywhere.
	assert.Contains(t, out, "/* loader preamble */")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "no_include")

	// The embedded form decodes to the payload bytes, with the payload's
	// own marker line stripped.
	start := strings.Index(out, `eval(atob("`)
	require.GreaterOrEqual(t, start, 0)
	encoded := out[start+len(`eval(atob("`):]
	end := strings.Index(encoded, `"`)
	require.GreaterOrEqual(t, end, 0)
	decoded, err := base64.StdEncoding.DecodeString(encoded[:end])
	require.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestBase64BundleMissingReference(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("chal/js", 0o755))

	e := newTestEngine()
	_, err := apply(t, e, "// COMPILER: base64_bundle gone.js", "", Context{
		Fs:   fs,
		Root: "chal",
		Path: "chal/js/loader.js",
	})
	require.Error(t, err)
	assert.True(t, ctferrors.IsKind(err, ctferrors.KindMissingDependency))
}

func TestChallengePage(t *testing.T) {
	fs := afero.NewMemMapFs()
	meta := `{"title": "Pipeline", "difficulty": "medium", "flag_hash": "f0263abc"}`
	require.NoError(t, afero.WriteFile(fs, "pipeline/.challenge.json", []byte(meta), 0o644))

	e := newTestEngine()
	res, err := apply(t, e, "<!-- COMPILER: challenge_page -->", "<p>Hello</p>", Context{
		Fs:   fs,
		Root: "pipeline",
		Path: "pipeline/challenge/index.html",
	})
	require.NoError(t, err)
	require.Equal(t, ActionWrite, res.Action)
	out := string(res.Data)

	assert.Contains(t, out, "Pipeline")
	assert.Contains(t, out, "medium")
	assert.Contains(t, out, `"pipeline"`)
	assert.Contains(t, out, "f0263abc")
	assert.Contains(t, out, "<p>Hello</p>")
	assert.Contains(t, out, "#e05a33") // medium difficulty color

	// No leftover placeholder tokens.
	assert.NotContains(t, out, "{{TITLE}}")
	assert.NotContains(t, out, "{{BODY}}")
	assert.NotRegexp(t, `\{\{[A-Z_]+\}\}`, out)
}

func TestChallengePageMissingMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("pipeline/challenge", 0o755))

	e := newTestEngine()
	_, err := apply(t, e, "<!-- COMPILER: challenge_page -->", "<p>Hello</p>", Context{
		Fs:   fs,
		Root: "pipeline",
		Path: "pipeline/challenge/index.html",
	})
	require.Error(t, err)
	assert.True(t, ctferrors.IsKind(err, ctferrors.KindMissingDependency))
}

func TestDirectoryListing(t *testing.T) {
	mtime := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
	ctx := Context{
		Path:      "chal/files/index.html",
		URLPrefix: "/files/",
		Entries: []Entry{
			{Name: "zebra.txt", Size: 120, ModTime: mtime},
			{Name: "index.html", Size: 40, ModTime: mtime},
			{Name: "backup", IsDir: true, ModTime: mtime},
			{Name: "alpha.log", Size: 9001, ModTime: mtime},
			{Name: ".notes.md", Size: 5, ModTime: mtime},
			{Name: ".challenge.json", Size: 80, ModTime: mtime},
		},
	}

	e := newTestEngine()
	decl := Decl{Directive: DirectoryListing}
	res, err := e.Apply(decl, nil, ctx)
	require.NoError(t, err)
	out := string(res.Data)

	assert.Contains(t, out, "Index of /files/")
	assert.Contains(t, out, `<a href="../">../</a>`)
	assert.Contains(t, out, "09-Mar-2024 14:30")
	assert.Contains(t, out, "nginx/1.25.3")

	// Directories come first, then files alphabetically.
	assert.Less(t, strings.Index(out, "backup/"), strings.Index(out, "alpha.log"))
	assert.Less(t, strings.Index(out, "alpha.log"), strings.Index(out, "zebra.txt"))

	// The listing file itself, hidden markdown, and metadata are omitted.
	assert.NotContains(t, out, "index.html")
	assert.NotContains(t, out, ".notes.md")
	assert.NotContains(t, out, ".challenge.json")

	// Deterministic for the same entry list.
	again, err := e.Apply(decl, nil, ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Data, again.Data)
}
