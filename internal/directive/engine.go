package directive

import (
	"regexp"
	"time"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	mjson "github.com/tdewolff/minify/v2/json"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
)

// Action says what the caller must do with a transformed file.
type Action int

const (
	// ActionPassthrough copies the file unchanged.
	ActionPassthrough Action = iota
	// ActionWrite replaces the file content with Result.Data.
	ActionWrite
	// ActionExclude drops the file from output entirely; the dev server
	// responds 404 for it.
	ActionExclude
)

// Result is the outcome of applying a directive to one file.
type Result struct {
	Action Action
	Data   []byte
}

// Entry is one item of a directory listing, supplied by the caller so the
// engine stays a pure function of its inputs.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Context carries the per-file inputs a handler may need beyond the file
// content itself.
type Context struct {
	// Fs is the source filesystem; handlers read companion files from it.
	Fs afero.Fs
	// Root is the challenge source root. Metadata lookup never escapes it.
	Root string
	// Path is the source file the directive was found in.
	Path string
	// URLPrefix is the URL path of the containing directory, ending in "/".
	URLPrefix string
	// Entries lists the containing directory's contents, for
	// directory_listing.
	Entries []Entry
}

type handlerFunc func(e *Engine, decl Decl, content []byte, ctx Context) (Result, error)

// Engine applies directives. It is shared by the site builder and the dev
// server; adding a directive means adding an enum value and a handler table
// entry.
type Engine struct {
	assets   *assets.Cache
	min      *minify.M
	handlers map[Directive]handlerFunc
}

// NewEngine creates an engine backed by the given asset cache.
func NewEngine(cache *assets.Cache) *Engine {
	m := minify.New()
	// No JS/CSS minifiers are registered on purpose: script and style
	// bodies must pass through byte-identical.
	m.Add("text/html", &mhtml.Minifier{
		KeepConditionalComments: true,
		KeepDocumentTags:        true,
		KeepEndTags:             true,
		KeepQuotes:              true,
	})
	m.AddFunc("application/json", mjson.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-|(ld|manifest)\+)?json$`), mjson.Minify)

	e := &Engine{assets: cache, min: m}
	e.handlers = map[Directive]handlerFunc{
		DirectoryListing: (*Engine).directoryListing,
		HTMLMinify:       (*Engine).htmlMinify,
		ChallengePage:    (*Engine).challengePage,
		JSONMinify:       (*Engine).jsonMinify,
		NoInclude:        (*Engine).noInclude,
		Base64Bundle:     (*Engine).base64Bundle,
	}
	return e
}

// Apply runs the handler for decl against content. Handlers read companion
// files through ctx.Fs but never write anything; output placement is the
// caller's concern.
func (e *Engine) Apply(decl Decl, content []byte, ctx Context) (Result, error) {
	handler, ok := e.handlers[decl.Directive]
	if !ok {
		return Result{Action: ActionPassthrough}, nil
	}
	return handler(e, decl, content, ctx)
}

func (e *Engine) noInclude(_ Decl, _ []byte, _ Context) (Result, error) {
	return Result{Action: ActionExclude}, nil
}
