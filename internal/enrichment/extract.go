package enrichment

import (
	"encoding/json"
	"fmt"
	"strings"

	"TrendingDigest/internal/domain"
)

// Placeholders used when the model response cannot supply a field.
const (
	FallbackDescription = "开源项目，详情请见 GitHub 页面。"
	FallbackComment     = "可结合本单位业务需求评估是否引入或二次开发。"
)

// Extraction is the outcome of parsing one model response. Project is always
// fully populated; Err is informational and explains why the fallback applied.
type Extraction struct {
	Project domain.EnrichedProject
	Block   string
	Err     error
}

type localizedFields struct {
	NameZH  *string `json:"name_zh"`
	DescZH  *string `json:"desc_zh"`
	Comment *string `json:"comment"`
}

// Extract decodes the outermost {...} span of text into the localized fields
// of project. Any failure yields the deterministic fallback record; fields
// missing from an otherwise valid block are filled one by one.
func Extract(project domain.Project, text string) Extraction {
	block, ok := locateBlock(text)
	if !ok {
		return Extraction{
			Project: Fallback(project),
			Err:     fmt.Errorf("%w: no balanced braces in response", domain.ErrExtraction),
		}
	}

	var fields localizedFields
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return Extraction{
			Project: Fallback(project),
			Block:   block,
			Err:     fmt.Errorf("%w: decode block: %v", domain.ErrExtraction, err),
		}
	}

	enriched := domain.EnrichedProject{Project: project}
	var filled []string

	if v, ok := present(fields.NameZH); ok {
		enriched.NameZH = v
	} else {
		enriched.NameZH = fallbackName(project)
		filled = append(filled, "name_zh")
	}
	if v, ok := present(fields.DescZH); ok {
		enriched.DescZH = v
	} else {
		enriched.DescZH = fallbackDescription(project)
		filled = append(filled, "desc_zh")
	}
	if v, ok := present(fields.Comment); ok {
		enriched.Comment = v
	} else {
		enriched.Comment = FallbackComment
		filled = append(filled, "comment")
	}

	result := Extraction{Project: enriched, Block: block}
	if len(filled) > 0 {
		result.Project.Fallback = true
		result.Err = fmt.Errorf("%w: missing keys %s", domain.ErrExtraction, strings.Join(filled, ", "))
	}
	return result
}

// Fallback synthesizes the localized fields from the source record alone.
func Fallback(project domain.Project) domain.EnrichedProject {
	return domain.EnrichedProject{
		Project:  project,
		NameZH:   fallbackName(project),
		DescZH:   fallbackDescription(project),
		Comment:  FallbackComment,
		Fallback: true,
	}
}

// locateBlock scans for the first '{' and the last '}' and returns the
// inclusive span between them. Nested or repeated blocks are not separated.
func locateBlock(text string) (string, bool) {
	start, end := -1, -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if start < 0 {
				start = i
			}
		case '}':
			end = i
		}
	}
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func present(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func fallbackName(project domain.Project) string {
	return project.Name
}

func fallbackDescription(project domain.Project) string {
	if project.Description != "" {
		return project.Description
	}
	return FallbackDescription
}
