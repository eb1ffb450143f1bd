// Package directive implements detection and application of compiler
// directives: first-line markers that select a build-time transformation for
// a source file.
//
// Supported markers, always on the very first line:
//
//	<!-- COMPILER: directory_listing -->
//	<!-- COMPILER: html_minify -->
//	<!-- COMPILER: challenge_page -->
//	// COMPILER: json_minify
//	// COMPILER: no_include
//	// COMPILER: base64_bundle <relative-path>
//
// The same engine is shared by the site builder and the dev server so both
// apply identical transformation semantics.
package directive

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// Directive identifies one member of the closed directive set.
type Directive int

const (
	DirectoryListing Directive = iota
	HTMLMinify
	ChallengePage
	JSONMinify
	NoInclude
	Base64Bundle
)

// String returns the marker token for the directive.
func (d Directive) String() string {
	switch d {
	case DirectoryListing:
		return "directory_listing"
	case HTMLMinify:
		return "html_minify"
	case ChallengePage:
		return "challenge_page"
	case JSONMinify:
		return "json_minify"
	case NoInclude:
		return "no_include"
	case Base64Bundle:
		return "base64_bundle"
	default:
		return "unknown"
	}
}

var tokens = map[string]Directive{
	"directory_listing": DirectoryListing,
	"html_minify":       HTMLMinify,
	"challenge_page":    ChallengePage,
	"json_minify":       JSONMinify,
	"no_include":        NoInclude,
	"base64_bundle":     Base64Bundle,
}

// Decl is a detected directive declaration. BundleRef carries the argument
// of base64_bundle: the sibling-relative path of the file to embed.
type Decl struct {
	Directive Directive
	BundleRef string
}

var (
	htmlMarkerRE = regexp.MustCompile(`(?i)\A\s*<!--\s*COMPILER:\s*(\w+)\s*-->`)
	lineMarkerRE = regexp.MustCompile(`(?i)\A\s*//\s*COMPILER:\s*(\w+)(?:[ \t]+(\S+))?`)
)

// Detect inspects a file's first line for a directive marker. Unrecognized
// or malformed markers (including base64_bundle without its file argument)
// are treated as absent, not as errors: the file will be plain-copied.
func Detect(firstLine string) (Decl, bool) {
	var token, arg string
	if m := htmlMarkerRE.FindStringSubmatch(firstLine); m != nil {
		token = m[1]
	} else if m := lineMarkerRE.FindStringSubmatch(firstLine); m != nil {
		token = m[1]
		arg = m[2]
	} else {
		return Decl{}, false
	}

	d, ok := tokens[strings.ToLower(token)]
	if !ok {
		return Decl{}, false
	}
	if d == Base64Bundle && arg == "" {
		return Decl{}, false
	}
	return Decl{Directive: d, BundleRef: arg}, true
}

// DetectFile reads only the first line of the file at path and detects its
// directive. Unreadable files report no directive; the caller will then
// treat the file as a plain copy and surface the read error there.
func DetectFile(fs afero.Fs, path string) (Decl, bool) {
	f, err := fs.Open(path)
	if err != nil {
		return Decl{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// A first line longer than the default 64K token limit cannot be a
	// directive marker anyway.
	if !scanner.Scan() {
		return Decl{}, false
	}
	return Detect(scanner.Text())
}

// StripMarker returns content with its first line removed. Used by handlers
// so the directive marker itself never appears in output.
func StripMarker(content []byte) []byte {
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		return content[i+1:]
	}
	return nil
}

func firstLine(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		return string(content[:i])
	}
	return string(content)
}
