package directive

import (
	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
)

// htmlMinify strips the marker line and minifies the remaining HTML: comments
// removed (conditional <!--[if comments kept), inter-tag whitespace
// collapsed. The interiors of pre, textarea, script, and style elements are
// left byte-for-byte untouched; a global whitespace collapse would corrupt
// embedded scripts, and that exclusion is the hard invariant here.
func (e *Engine) htmlMinify(_ Decl, content []byte, ctx Context) (Result, error) {
	out, err := e.min.Bytes("text/html", StripMarker(content))
	if err != nil {
		return Result{}, ctferrors.MalformedInput(ctx.Path, err)
	}
	return Result{Action: ActionWrite, Data: append(out, '\n')}, nil
}

// jsonMinify strips the marker line and re-serializes the JSON in the most
// compact form. The minifier works on the token stream, so key order and
// number/string lexemes survive exactly and re-parsing the output yields a
// value deep-equal to the input. Invalid JSON is a malformed-input error.
func (e *Engine) jsonMinify(_ Decl, content []byte, ctx Context) (Result, error) {
	out, err := e.min.Bytes("application/json", StripMarker(content))
	if err != nil {
		return Result{}, ctferrors.MalformedInput(ctx.Path, err)
	}
	return Result{Action: ActionWrite, Data: append(out, '\n')}, nil
}
