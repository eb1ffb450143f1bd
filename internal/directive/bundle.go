package directive

import (
	"bytes"
	"encoding/base64"
	"os"
	"path"

	"github.com/spf13/afero"

	ctferrors "github.com/Wyatt-Stanke/ctf/internal/errors"
)

// base64Bundle embeds a sibling file into this one in encoded form. The
// referenced file's raw bytes are base64-encoded and appended as an
// eval(atob("...")); line after the marked file's remaining content, so the
// shipped output carries only the encoded payload. The referenced file is
// expected to carry no_include itself so its plaintext never ships; a
// leading no_include marker line is stripped from the payload before
// encoding.
func (e *Engine) base64Bundle(decl Decl, content []byte, ctx Context) (Result, error) {
	refPath := path.Join(path.Dir(ctx.Path), decl.BundleRef)

	payload, err := afero.ReadFile(ctx.Fs, refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, ctferrors.MissingDependency(ctx.Path, decl.BundleRef)
		}
		return Result{}, err
	}

	if d, ok := Detect(firstLine(payload)); ok && d.Directive == NoInclude {
		payload = StripMarker(payload)
	}

	var buf bytes.Buffer
	buf.Write(StripMarker(content))
	buf.WriteString(`eval(atob("`)
	buf.WriteString(base64.StdEncoding.EncodeToString(payload))
	buf.WriteString("\"));\n")

	return Result{Action: ActionWrite, Data: buf.Bytes()}, nil
}
