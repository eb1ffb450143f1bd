package directive

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/Wyatt-Stanke/ctf/internal/challenge"
)

// ReadEntries lists dir's contents as listing entries for a
// directory_listing context. Both the builder and the dev server use it; the
// server calls it at request time so listings reflect the live filesystem.
func ReadEntries(fs afero.Fs, dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// directoryListing generates an nginx-style index page for the directory
// containing the marked file. The marker file's own content is ignored; the
// entry list comes from the context so the builder and the dev server each
// supply their own view of the directory (pre-walked vs. live filesystem).
//
// Output is deterministic for a given entry list: case-insensitive name
// sort, directories before files.
func (e *Engine) directoryListing(_ Decl, _ []byte, ctx Context) (Result, error) {
	self := path.Base(ctx.Path)

	var dirs, files []Entry
	for _, entry := range ctx.Entries {
		if entry.Name == self || challenge.IsExcludedName(entry.Name) {
			continue
		}
		if entry.IsDir {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	byName := func(entries []Entry) {
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
	}
	byName(dirs)
	byName(files)

	lines := []string{`<a href="../">../</a>`}
	for _, entry := range append(dirs, files...) {
		lines = append(lines, listingLine(entry))
	}

	urlPrefix := ctx.URLPrefix
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}

	page := fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <title>Index of %[1]s</title>
  </head>
  <body>
    <h1>Index of %[1]s</h1>
    <hr />
    <pre>%[2]s
</pre>
    <hr />
    <address>nginx/1.25.3</address>
  </body>
</html>
`, urlPrefix, strings.Join(lines, "\n"))

	return Result{Action: ActionWrite, Data: []byte(page)}, nil
}

// listingLine renders one entry in nginx autoindex column layout: link,
// name padded to 50 columns, modification date, then size (or "-" for
// directories).
func listingLine(entry Entry) string {
	name := entry.Name
	if entry.IsDir {
		name += "/"
	}

	padding := 51 - len(name)
	if padding < 1 {
		padding = 1
	}

	size := "   -"
	if !entry.IsDir {
		size = fmt.Sprintf("%7d", entry.Size)
	}

	return fmt.Sprintf(`<a href="%s">%-50s</a>%s%s %s`,
		name, name, strings.Repeat(" ", padding),
		entry.ModTime.UTC().Format("02-Jan-2006 15:04"), size)
}
