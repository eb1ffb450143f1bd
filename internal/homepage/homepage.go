// Package homepage generates the root landing page listing every challenge,
// rendered in collapsible groups with a slug-to-flag-hash map consumed
// client-side so submitted flags are verified without a server round-trip.
// Only the hash of each flag is embedded, never the flag itself.
package homepage

import (
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/Wyatt-Stanke/ctf/internal/assets"
	"github.com/Wyatt-Stanke/ctf/internal/challenge"
	"github.com/Wyatt-Stanke/ctf/internal/logging"
)

// Generator writes the homepage.
type Generator struct {
	fs     afero.Fs
	assets *assets.Cache
	log    logging.Logger
}

// New creates a generator over fs using the given asset cache.
func New(fs afero.Fs, cache *assets.Cache, log logging.Logger) *Generator {
	return &Generator{fs: fs, assets: cache, log: log.WithComponent("homepage")}
}

// Generate writes dst/index.html from the discovered groups. Groups and
// challenges render in the order given, which discovery keeps name-sorted,
// so repeated runs over an unchanged tree produce identical output.
func (g *Generator) Generate(groups []challenge.Group, dst string) error {
	var sections []string
	var hashEntries []string
	var groupMapEntries []string
	total := 0

	for _, group := range groups {
		var cards []string
		for _, dir := range group.Challenges {
			meta, err := challenge.LoadMeta(g.fs, dir)
			if err != nil {
				meta = challenge.FallbackMeta(dir)
			}
			cards = append(cards, cardHTML(meta))
			if meta.FlagHash != "" {
				hashEntries = append(hashEntries,
					fmt.Sprintf("    %q: %q", meta.Slug, meta.FlagHash))
			}
			total++
		}
		sections = append(sections, sectionHTML(group, cards))

		var memberSlugs []string
		for _, dir := range group.Challenges {
			memberSlugs = append(memberSlugs, fmt.Sprintf("%q", path.Base(dir)))
		}
		groupMapEntries = append(groupMapEntries,
			fmt.Sprintf("    %q: [%s]", group.Slug, strings.Join(memberSlugs, ", ")))
	}

	tpl, err := g.assets.HomepageTemplate()
	if err != nil {
		return err
	}
	css, err := g.assets.SharedCSS()
	if err != nil {
		return err
	}
	js, err := g.assets.SharedJS()
	if err != nil {
		return err
	}

	page, err := assets.ExpandPlaceholders("homepage.html", tpl, map[string]string{
		"GROUPS":     strings.Join(sections, "\n\n"),
		"HASHES":     strings.Join(hashEntries, ",\n"),
		"COUNT":      fmt.Sprintf("%d", total),
		"GROUP_MAP":  strings.Join(groupMapEntries, ",\n"),
		"SHARED_CSS": css,
		"SHARED_JS":  js,
	})
	if err != nil {
		return err
	}

	if err := g.fs.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(g.fs, path.Join(dst, "index.html"), []byte(page), 0o644); err != nil {
		return fmt.Errorf("write homepage: %w", err)
	}

	g.log.Info("homepage generated", "challenges", total, "groups", len(groups))
	return nil
}

func cardHTML(meta *challenge.Meta) string {
	slug := meta.Slug
	color := challenge.DifficultyColor(meta.Difficulty)

	return fmt.Sprintf(`          <div class="challenge-card" data-slug="%[1]s">
            <div class="card-header">
              <span class="difficulty" style="color:%[2]s;background:%[2]s22">%[3]s</span>
              <a class="card-title" href="./%[1]s/challenge/">%[4]s</a>
            </div>
            <p class="card-summary">%[5]s</p>
            <div class="card-footer">
              <a class="card-link" href="./%[1]s/challenge/" target="_blank">Open challenge &rarr;</a>
              <form class="flag-form" data-slug="%[1]s" onsubmit="return _checkFlag(event)">
                <input type="text" class="flag-input" placeholder="flag{...}" autocomplete="off" spellcheck="false" />
                <button type="submit" class="flag-btn">Submit</button>
              </form>
              <div class="flag-result" data-result="%[1]s"></div>
            </div>
          </div>`,
		slug,
		color,
		html.EscapeString(meta.Difficulty),
		html.EscapeString(meta.Title),
		html.EscapeString(meta.Summary))
}

func sectionHTML(group challenge.Group, cards []string) string {
	desc := ""
	if group.Description != "" {
		desc = fmt.Sprintf("\n          <p class=\"group-description\">%s</p>",
			html.EscapeString(group.Description))
	}

	return fmt.Sprintf(`        <div class="group" data-group="%[1]s">
          <div class="group-header" onclick="_toggleGroup(this)">
            <div class="group-header-left">
              <span class="group-chevron">&#9662;</span>
              <h2 class="group-title">%[2]s</h2>
              <span class="group-count">%[3]d</span>
            </div>
            <span class="group-progress" data-group-progress="%[1]s"></span>
          </div>%[4]s
          <div class="group-body">
%[5]s
          </div>
        </div>`,
		html.EscapeString(group.Slug),
		html.EscapeString(group.Name),
		len(cards),
		desc,
		strings.Join(cards, "\n"))
}
