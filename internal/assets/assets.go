// Package assets loads the shared template fragments (page templates, shared
// stylesheet, shared script) consumed by the template-expanding directives
// and the homepage generator.
//
// The defaults are embedded in the binary; an override directory can shadow
// any of them with files of the same name. The cache is an explicit object
// passed by reference into the builder and server, not a process-wide
// singleton.
package assets

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
)

//go:embed templates
var embedded embed.FS

// Asset file names, resolved against the override directory first and the
// embedded defaults second.
const (
	sharedCSSName         = "shared.css"
	sharedJSName          = "shared.js"
	challengeTemplateName = "challenge.html"
	homepageTemplateName  = "homepage.html"
)

// Cache loads and serves shared template assets.
//
// In memoizing mode (New) each asset is read once and is read-only after
// first load, so concurrent readers need no synchronization beyond the
// sync.Once guarding population. In live mode (NewLive) override files are
// re-read on every call so a running dev server picks up edits to shared
// assets without a restart.
type Cache struct {
	dir  string
	live bool

	mu   sync.Mutex
	once map[string]*sync.Once
	memo map[string]string
	errs map[string]error
}

// New creates a memoizing cache. dir may be empty to use only the embedded
// defaults.
func New(dir string) *Cache {
	return &Cache{
		dir:  dir,
		once: make(map[string]*sync.Once),
		memo: make(map[string]string),
		errs: make(map[string]error),
	}
}

// NewLive creates a cache that re-reads override files on every call.
// Embedded defaults never change, so without an override directory live mode
// behaves exactly like memoizing mode.
func NewLive(dir string) *Cache {
	c := New(dir)
	c.live = dir != ""
	return c
}

// SharedCSS returns the shared stylesheet.
func (c *Cache) SharedCSS() (string, error) { return c.load(sharedCSSName) }

// SharedJS returns the shared client-side script.
func (c *Cache) SharedJS() (string, error) { return c.load(sharedJSName) }

// ChallengeTemplate returns the challenge page template.
func (c *Cache) ChallengeTemplate() (string, error) { return c.load(challengeTemplateName) }

// HomepageTemplate returns the homepage template.
func (c *Cache) HomepageTemplate() (string, error) { return c.load(homepageTemplateName) }

func (c *Cache) load(name string) (string, error) {
	if c.live {
		return c.read(name)
	}

	c.mu.Lock()
	once, ok := c.once[name]
	if !ok {
		once = &sync.Once{}
		c.once[name] = once
	}
	c.mu.Unlock()

	once.Do(func() {
		content, err := c.read(name)
		c.mu.Lock()
		c.memo[name] = content
		c.errs[name] = err
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memo[name], c.errs[name]
}

func (c *Cache) read(name string) (string, error) {
	if c.dir != "" {
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("read asset %s: %w", name, err)
		}
	}
	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("read embedded asset %s: %w", name, err)
	}
	return string(data), nil
}

// placeholderRE matches template tokens like {{TITLE}}. Token names are
// upper-case so literal braces in page content (e.g. "flag{{...}}") never
// match.
var placeholderRE = regexp.MustCompile(`\{\{[A-Z][A-Z_]*\}\}`)

// ExpandPlaceholders substitutes values into text by literal replacement.
// Any recognized token left unresolved after substitution is an error, never
// silently blank, so drift between template and placeholder set is caught at
// compile time. path names the template for error reporting.
func ExpandPlaceholders(path, text string, values map[string]string) (string, error) {
	for token, value := range values {
		text = strings.ReplaceAll(text, "{{"+token+"}}", value)
	}
	if leftover := placeholderRE.FindString(text); leftover != "" {
		return "", ctferrors.UnresolvedPlaceholder(path, leftover)
	}
	return text, nil
}
