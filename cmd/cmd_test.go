package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(old)) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeChallenge(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, ".challenge.json"),
		`{"title": "Pipeline", "difficulty": "medium", "flag_hash": "f0263"}`)
	writeFile(t, filepath.Join(dir, "index.html"), "<h1>hi</h1>\n")
	writeFile(t, filepath.Join(dir, "challenge", "index.html"),
		"<!-- COMPILER: challenge_page -->\n<p>Hello</p>\n")
	writeFile(t, filepath.Join(dir, "js", "_secret.js"),
		"// COMPILER: no_include\nvar flag = 'nope';\n")
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeChallenge(t, "pipeline")

	rootCmd.SetArgs([]string{"compile", "pipeline", "-o", "out"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(filepath.Join("out", "pipeline", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>\n", string(data))

	page, err := os.ReadFile(filepath.Join("out", "pipeline", "challenge", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Pipeline")

	_, err = os.Stat(filepath.Join("out", "pipeline", ".challenge.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join("out", "pipeline", "js", "_secret.js"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileAllCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join("web", ".group.json"), `{"name": "Web"}`)
	writeChallenge(t, filepath.Join("web", "a1"))
	writeChallenge(t, "standalone")

	rootCmd.SetArgs([]string{"compile-all", "--source", ".", "-o", "out"})
	require.NoError(t, rootCmd.Execute())

	for _, p := range []string{
		filepath.Join("out", "index.html"),
		filepath.Join("out", "a1", "index.html"),
		filepath.Join("out", "standalone", "index.html"),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	home, err := os.ReadFile(filepath.Join("out", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "const TOTAL = 2;")
}

func TestCompileAllCommandNoChallenges(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	rootCmd.SetArgs([]string{"compile-all", "--source", ".", "-o", "out"})
	assert.Error(t, rootCmd.Execute())
}
