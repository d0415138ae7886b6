package enrichment

import (
	"fmt"

	"TrendingDigest/internal/domain"
)

const promptTemplate = `
你是一名熟悉中国体制内业务场景的 AI 咨询顾问。

下面是一个 GitHub 开源项目，请你完成三件事：
1）把项目名称翻译成简体中文，要求自然、简洁。
2）把项目简介翻译成简体中文，50 字以内，保留核心功能信息。
3）写一段 50 字以内的“体制内应用场景点评”，要落在实际场景上，例如：政务服务、政务办公、数据治理、纪检监察、宣传工作等。

请严格按照下面 JSON 格式用中文返回，不要有多余文字、不要换字段名：
{
  "name_zh": "中文名称",
  "desc_zh": "中文简介（50 字以内）",
  "comment": "体制内应用场景点评（50 字以内）"
}

项目名称: %s
项目地址: %s
项目简介: %s
`

// BuildPrompt embeds the project fields into the fixed instruction.
func BuildPrompt(project domain.Project) string {
	return fmt.Sprintf(promptTemplate, project.Name, project.URL, project.Description)
}

// Preview shortens s to at most limit runes, marking the cut with "...".
func Preview(s string, limit int) string {
	runes := []rune(s)
	if limit < 0 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
