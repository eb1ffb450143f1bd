// Package challenge defines challenge and group metadata and discovers both
// in a source tree.
//
// A challenge is a directory carrying a .challenge.json file; a group is a
// directory carrying a .group.json file whose immediate subdirectories are
// its member challenges. Challenges at the source root outside any group are
// collected into an implicit "Ungrouped" group.
package challenge

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// MetaFileName is the per-challenge metadata file, excluded from all output.
const MetaFileName = ".challenge.json"

// GroupMetaFileName is the per-group metadata file, excluded from all output.
const GroupMetaFileName = ".group.json"

// Meta is the challenge metadata record.
type Meta struct {
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
	Summary    string `json:"summary"`
	FlagHash   string `json:"flag_hash"`

	// Slug is the challenge directory name; derived, not stored in the file.
	Slug string `json:"-"`
}

// GroupMeta is the group metadata record.
type GroupMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Group is a named bucket of challenges for homepage display.
type Group struct {
	Name        string
	Description string
	Slug        string
	// Challenges are source-root-relative directory paths of the members,
	// name-sorted.
	Challenges []string
}

// hiddenMarkdownRE matches author-only documentation files like
// .solving-guide.md. They exist in the source tree purely for challenge
// authors and never ship.
var hiddenMarkdownRE = regexp.MustCompile(`(?i)^\..+\.md$`)

// IsHiddenMarkdown reports whether name is a hidden markdown file.
func IsHiddenMarkdown(name string) bool {
	return hiddenMarkdownRE.MatchString(name)
}

// IsMetaFile reports whether name is a compiler metadata file.
func IsMetaFile(name string) bool {
	return name == MetaFileName || name == GroupMetaFileName
}

// IsExcludedName reports whether name is unconditionally excluded from
// output trees, directory listings, and the dev server, regardless of any
// directive.
func IsExcludedName(name string) bool {
	return IsMetaFile(name) || IsHiddenMarkdown(name)
}

// UngroupedSlug identifies the implicit group holding top-level challenges
// that sit outside any group directory.
const UngroupedSlug = "_ungrouped"

var difficultyColors = map[string]string{
	"easy":   "#22c55e",
	"medium": "#e05a33",
	"hard":   "#ef4444",
	"insane": "#a855f7",
}

// DifficultyColor maps a difficulty label to its badge color. Unknown labels
// get a neutral gray.
func DifficultyColor(difficulty string) string {
	if c, ok := difficultyColors[strings.ToLower(difficulty)]; ok {
		return c
	}
	return "#6b7280"
}

// TitleFromSlug derives a display title from a directory name, for metadata
// files that omit one.
func TitleFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// LoadMeta reads .challenge.json from dir. The returned Meta always has
// usable Title, Difficulty, and Slug values even when fields are absent from
// the file. A missing or unreadable metadata file is reported to the caller;
// directives that require it surface that as a missing dependency.
func LoadMeta(fs afero.Fs, dir string) (*Meta, error) {
	slug := path.Base(dir)

	data, err := afero.ReadFile(fs, path.Join(dir, MetaFileName))
	if err != nil {
		return nil, err
	}

	meta := &Meta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetaFileName, err)
	}

	meta.Slug = slug
	if meta.Title == "" {
		meta.Title = TitleFromSlug(slug)
	}
	if meta.Difficulty == "" {
		meta.Difficulty = "Unknown"
	}
	return meta, nil
}

// FallbackMeta builds a Meta for a challenge directory with no readable
// metadata file. Used only by the homepage, where a card without metadata is
// preferable to dropping the challenge from the listing.
func FallbackMeta(dir string) *Meta {
	slug := path.Base(dir)
	return &Meta{
		Title:      TitleFromSlug(slug),
		Difficulty: "Unknown",
		Summary:    "No description available.",
		Slug:       slug,
	}
}

// ignoredDirs are root entries that are never challenge or group sources.
var ignoredDirs = map[string]bool{
	".git":         true,
	".github":      true,
	"dist":         true,
	"node_modules": true,
}

// DiscoverGroups walks the immediate children of root and returns every
// group with its member challenges, plus the implicit ungrouped group (last)
// when top-level standalone challenges exist. Order is name-sorted and
// therefore stable across runs of an unchanged tree.
func DiscoverGroups(fs afero.Fs, root string, extraIgnore []string) ([]Group, error) {
	ignore := make(map[string]bool, len(ignoredDirs)+len(extraIgnore))
	for name := range ignoredDirs {
		ignore[name] = true
	}
	for _, name := range extraIgnore {
		ignore[name] = true
	}

	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, fmt.Errorf("read source root: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var groups []Group
	var ungrouped []string

	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || ignore[name] || strings.HasPrefix(name, ".") {
			continue
		}
		dir := path.Join(root, name)

		hasGroupMeta, err := afero.Exists(fs, path.Join(dir, GroupMetaFileName))
		if err != nil {
			return nil, err
		}
		if hasGroupMeta {
			group, err := loadGroup(fs, root, dir)
			if err != nil {
				return nil, err
			}
			if len(group.Challenges) > 0 {
				groups = append(groups, group)
			}
			continue
		}

		hasChallengeMeta, err := afero.Exists(fs, path.Join(dir, MetaFileName))
		if err != nil {
			return nil, err
		}
		if hasChallengeMeta {
			ungrouped = append(ungrouped, dir)
		}
	}

	if len(ungrouped) > 0 {
		groups = append(groups, Group{
			Name:       "Ungrouped",
			Slug:       UngroupedSlug,
			Challenges: ungrouped,
		})
	}

	return groups, nil
}

func loadGroup(fs afero.Fs, root, dir string) (Group, error) {
	group := Group{
		Name: TitleFromSlug(path.Base(dir)),
		Slug: path.Base(dir),
	}

	data, err := afero.ReadFile(fs, path.Join(dir, GroupMetaFileName))
	if err == nil {
		var meta GroupMeta
		if err := json.Unmarshal(data, &meta); err == nil {
			if meta.Name != "" {
				group.Name = meta.Name
			}
			group.Description = meta.Description
		}
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return group, fmt.Errorf("read group %s: %w", group.Slug, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		group.Challenges = append(group.Challenges, path.Join(dir, entry.Name()))
	}
	return group, nil
}

// Count returns the total number of challenges across groups.
func Count(groups []Group) int {
	total := 0
	for _, g := range groups {
		total += len(g.Challenges)
	}
	return total
}

// All flattens groups into a single list of challenge directories.
func All(groups []Group) []string {
	var dirs []string
	for _, g := range groups {
		dirs = append(dirs, g.Challenges...)
	}
	return dirs
}
