// 包 textutil 提供正文文本清洗：
// - 实体解码与去标签（用于 RSS 描述等简单 HTML）
// - 常见站点口水文案（分享/订阅/版权）剔除
// - 空白归一化
package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	spaceRe      = regexp.MustCompile(`[ \t]+`)
	multiLineRe  = regexp.MustCompile(`\n{3,}`)
	boilerplates = []*regexp.Regexp{
		regexp.MustCompile(`(?im)Share this article.*$`),
		regexp.MustCompile(`(?im)Subscribe to.*$`),
		regexp.MustCompile(`(?im)Follow us on.*$`),
		regexp.MustCompile(`(?im)Copyright \d{4}.*$`),
		regexp.MustCompile(`(?im)All rights reserved.*$`),
	}
)

// StripHTML 解码 HTML 实体并去除全部标签，随后压缩空白。
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// RemoveBoilerplate 剔除新闻页常见的分享/订阅/版权尾巴。
func RemoveBoilerplate(s string) string {
	for _, re := range boilerplates {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// NormalizeWhitespace 压缩行内空格，并将三个以上连续换行压为段落分隔。
func NormalizeWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = multiLineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Clean 为完整清洗管线：去标签 → 去口水文案 → 空白归一化。
func Clean(raw string) string {
	s := StripHTML(raw)
	s = RemoveBoilerplate(s)
	return NormalizeWhitespace(s)
}
