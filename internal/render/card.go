// Package render turns enriched projects into HTML card fragments.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

const cardTemplate = `
          <article class="card-item group glass-card card-hover rounded-2xl border border-slate-200/80 p-4 flex flex-col justify-between"
                   data-category="script" data-repo="{{.Name}}">
            <div class="flex items-start gap-3">
              <div class="h-9 w-9 rounded-2xl bg-violet-500 flex items-center justify-center text-white text-base shadow-sm">
                ⚙️
              </div>
              <div class="flex-1 min-w-0">
                <h3 class="text-sm font-semibold tracking-tight text-slate-900 truncate" title="{{.Name}}">
                  {{.NameZH}}
                </h3>
                <p class="mt-1 text-xs text-slate-500 line-clamp-2">
                  {{.DescZH}}
                </p>
              </div>
            </div>
            <div class="mt-4 flex items-center justify-between gap-2">
              <span class="inline-flex items-center rounded-full bg-slate-900 text-slate-100 px-2.5 py-1 text-[11px] font-medium">
                点评：{{.Comment}}
              </span>
              <a href="{{.URL}}" target="_blank"
                 class="inline-flex items-center rounded-full bg-violet-100 text-violet-700 hover:bg-violet-200 px-3 py-1.5 text-[11px] font-medium">
                查看项目
              </a>
            </div>
          </article>`

var card = template.Must(template.New("card").Parse(cardTemplate))

// CardRenderer renders one project card. It holds no state besides the
// parsed template, so equal inputs give equal fragments.
type CardRenderer struct{}

var _ ports.Renderer = CardRenderer{}

// Render escapes every field into the fixed card markup.
func (CardRenderer) Render(project domain.EnrichedProject) (string, error) {
	var buf bytes.Buffer
	if err := card.Execute(&buf, project); err != nil {
		return "", fmt.Errorf("render card %s: %w", project.Name, err)
	}
	return strings.TrimRight(buf.String(), " \n"), nil
}

// RenderAll renders projects in order, stopping at the first failure.
func RenderAll(r ports.Renderer, projects []domain.EnrichedProject) ([]string, error) {
	fragments := make([]string, 0, len(projects))
	for _, project := range projects {
		fragment, err := r.Render(project)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}
