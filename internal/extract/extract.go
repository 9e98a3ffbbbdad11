// 包 extract 实现内容归一化：将单篇文章的原始 HTML 片段
// 映射为规范化的小节/FAQ/图片/考点元数据。
//
// 结构约定（持久化契约，勿改动格式标记）：
// - 小节内段落之间以 ParagraphBreak（空行）分隔
// - 列表渲染为 BulletPrefix 前缀的行，整个列表作为一个段落块
// - 表格按行渲染，单元格以 " | " 连接，整表作为一个段落块
// - h3 子标题不建树：生成与上级 h2 同 Heading 的兄弟小节，仅 Subheading 不同
package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"go-current-affairs/internal/model"
	"go-current-affairs/internal/rules"
	"go-current-affairs/internal/textutil"
)

// 文本内格式标记。已落库数据依赖其字节级稳定，视为对外契约。
const (
	ParagraphBreak = "\n\n"
	BulletPrefix   = "• "
	cellSeparator  = " | "
)

// 抽取失败原因（标题与 URL 为强制字段，正文不可为空）。
const (
	ReasonMissingTitle = "missing-title"
	ReasonMissingURL   = "missing-url"
	ReasonEmptyBody    = "empty-body"
)

// Error 为按篇隔离的抽取错误；编排层据此跳过并计数，绝不中断整轮。
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "extract: " + e.Reason }

// Options 为抽取参数：来源标识、发布日期、相对链接基准与解析预设。
type Options struct {
	Source  string
	Date    time.Time
	BaseURL string
	Preset  rules.Preset
}

// Article 将一个原始片段归一化为规范 Article。
// 除标题与 URL 外的一切都是尽力而为：元数据块缺失不算失败，
// 但零小节（仅有标题的空壳）会以 empty-body 拒绝。
func Article(fragment string, o Options) (model.Article, error) {
	ap := o.Preset.ArticlePage
	if ap == nil {
		def := rules.SanskritiDefault()
		ap = def.ArticlePage
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return model.Article{}, &Error{Reason: ReasonEmptyBody}
	}
	scope := doc.Selection
	if ap.Item != "" {
		if item := doc.Find(ap.Item).First(); item.Length() > 0 {
			scope = item
		}
	}

	title := strings.TrimSpace(getVal(scope, ap.Title))
	if title == "" {
		return model.Article{}, &Error{Reason: ReasonMissingTitle}
	}
	srcURL := abs(o.BaseURL, getVal(scope, ap.TitleURL))
	if srcURL == "" {
		return model.Article{}, &Error{Reason: ReasonMissingURL}
	}

	meta, metaNode := extractMetadata(scope, ap)
	content := extractContent(scope, ap, metaNode)
	if len(content) == 0 {
		return model.Article{}, &Error{Reason: ReasonEmptyBody}
	}

	return model.Article{
		Title:         title,
		Source:        o.Source,
		SourceURL:     srcURL,
		PublishedDate: o.Date,
		Metadata:      meta,
		Content:       content,
		FAQs:          extractFAQs(scope, ap),
		Images:        extractImages(scope, ap, o.BaseURL),
		ExtractedAt:   time.Now(),
	}, nil
}

// extractMetadata 解析考点表格中的 "Prelims:" / "Mains:" 行。
// 返回元数据与表格节点本身，后者用于正文遍历时跳过该表。
func extractMetadata(scope *goquery.Selection, ap *rules.ArticlePage) (model.Metadata, *html.Node) {
	meta := model.Metadata{Tags: []string{}}
	if ap.MetaTable == "" {
		return meta, nil
	}
	td := scope.Find(ap.MetaTable).First()
	if td.Length() == 0 {
		return meta, nil
	}
	for _, line := range cellLines(td) {
		switch {
		case strings.HasPrefix(line, "Prelims:"):
			meta.Prelims = strings.TrimSpace(strings.TrimPrefix(line, "Prelims:"))
		case strings.Contains(line, "Mains") && (strings.Contains(line, ":") || strings.Contains(line, ",")):
			// 站点写法不稳定，"Mains:" 与 "Mains," 两种都见过
			v := strings.ReplaceAll(line, "Mains:", "")
			v = strings.ReplaceAll(v, "Mains,", "")
			meta.Mains = strings.TrimSpace(v)
		}
	}
	var node *html.Node
	if t := td.Closest("table"); t.Length() > 0 {
		node = t.Get(0)
	}
	return meta, node
}

var brRe = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|li|tr|div)>`)

// cellLines 将单元格内容按换行语义拆为文本行（<br> 与块级闭合都视为换行）。
func cellLines(sel *goquery.Selection) []string {
	raw, err := sel.Html()
	if err != nil {
		return nil
	}
	raw = brRe.ReplaceAllString(raw, "\n")
	var out []string
	for _, line := range strings.Split(textutil.StripHTML(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// extractContent 自上而下遍历正文：每个 h2 开启一个小节，
// 小节范围内的 h3 生成共享同一 Heading 的兄弟小节（扁平化，非树）。
// 段落/列表/表格按格式标记拼入小节文本，直至下一个 h2/h4。
func extractContent(scope *goquery.Selection, ap *rules.ArticlePage, metaNode *html.Node) []model.Section {
	content := []model.Section{}
	faqHeading := strings.ToUpper(strings.TrimSpace(ap.FAQHeading))
	scope.Find("h2").Each(func(_ int, h2 *goquery.Selection) {
		heading := strings.TrimSpace(h2.Text())
		if faqHeading != "" && strings.ToUpper(heading) == faqHeading {
			return // FAQ 区块单独收集，不进正文
		}
		var blocks []string
		var subheading string
		flush := func() {
			if len(blocks) > 0 {
				content = append(content, model.Section{
					Heading:    heading,
					Subheading: subheading,
					Content:    strings.Join(blocks, ParagraphBreak),
				})
				blocks = nil
			}
		}
		for cur := h2.Next(); cur.Length() > 0 && !cur.Is("h2") && !cur.Is("h4"); cur = cur.Next() {
			if metaNode != nil && cur.Get(0) == metaNode {
				continue
			}
			switch {
			case cur.Is("h3"):
				flush()
				subheading = strings.TrimSpace(cur.Text())
			case cur.Is("p"):
				if text := strings.TrimSpace(cur.Text()); text != "" {
					blocks = append(blocks, text)
				}
			case cur.Is("ul"), cur.Is("ol"):
				if block := listBlock(cur); block != "" {
					blocks = append(blocks, block)
				}
			case cur.Is("table"):
				if block := tableBlock(cur); block != "" {
					blocks = append(blocks, block)
				}
			}
		}
		flush()
	})
	return content
}

// listBlock 将列表渲染为每项一行的 BulletPrefix 文本块（仅取直接子项）。
func listBlock(list *goquery.Selection) string {
	var items []string
	list.Children().Each(func(_ int, li *goquery.Selection) {
		if !li.Is("li") {
			return
		}
		if text := strings.TrimSpace(li.Text()); text != "" {
			items = append(items, BulletPrefix+text)
		}
	})
	return strings.Join(items, "\n")
}

// tableBlock 将表格按行压平：单元格以 " | " 连接，一行一条。
// 有损但可查询，结构化表格类型不在本模型范围内。
func tableBlock(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(c.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, cellSeparator))
		}
	})
	return strings.Join(rows, "\n")
}

// extractFAQs 收集 FAQ 标题之后的问答对，直到下一个 h2/h4 或文档结束。
// 问句判定：段落含 <strong> 且前缀命中预设（默认 "Q."/"Q"）；
// 判定不中的段落一律并入当前答案，宁可漏判不错标。
func extractFAQs(scope *goquery.Selection, ap *rules.ArticlePage) []model.FAQ {
	faqs := []model.FAQ{}
	faqHeading := strings.ToUpper(strings.TrimSpace(ap.FAQHeading))
	if faqHeading == "" {
		return faqs
	}
	var start *goquery.Selection
	scope.Find("h2").EachWithBreak(func(_ int, h2 *goquery.Selection) bool {
		if strings.ToUpper(strings.TrimSpace(h2.Text())) == faqHeading {
			start = h2
			return false
		}
		return true
	})
	if start == nil {
		return faqs
	}
	var question string
	var answers []string
	flush := func() {
		if question != "" {
			faqs = append(faqs, model.FAQ{Question: question, Answer: strings.Join(answers, " ")})
		}
	}
	for cur := start.Next(); cur.Length() > 0 && !cur.Is("h2") && !cur.Is("h4"); cur = cur.Next() {
		if !cur.Is("p") {
			continue
		}
		text := strings.TrimSpace(cur.Text())
		if text == "" {
			continue
		}
		if cur.Find("strong").Length() > 0 && hasQuestionPrefix(text, ap.QuestionPrefixes) {
			flush()
			question = text
			answers = nil
			continue
		}
		answers = append(answers, text)
	}
	flush()
	return faqs
}

// hasQuestionPrefix 在文本前 5 个字符内匹配任一问句前缀。
func hasQuestionPrefix(text string, prefixes []string) bool {
	if len(prefixes) == 0 {
		prefixes = []string{"Q.", "Q"}
	}
	head := text
	if len(head) > 5 {
		head = head[:5]
	}
	for _, p := range prefixes {
		if p != "" && strings.Contains(head, p) {
			return true
		}
	}
	return false
}

// extractImages 按文档顺序收集全部正文图片，不关心其视觉上属于哪个小节。
// 说明文字优先取外层链接的 title 属性。
func extractImages(scope *goquery.Selection, ap *rules.ArticlePage, baseURL string) []model.Image {
	images := []model.Image{}
	sel := ap.Image
	if sel == "" {
		sel = "img"
	}
	scope.Find(sel).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		if ap.ImageFilter != "" && !strings.Contains(src, ap.ImageFilter) {
			return
		}
		alt, _ := img.Attr("alt")
		var caption string
		if a := img.Closest("a"); a.Length() > 0 {
			caption, _ = a.Attr("title")
		}
		images = append(images, model.Image{
			URL:     abs(baseURL, src),
			Alt:     strings.TrimSpace(alt),
			Caption: strings.TrimSpace(caption),
		})
	})
	return images
}

// getVal 解析选择器表达式，支持 "选择器@属性" 与 "||" 多方案回退。
func getVal(scope *goquery.Selection, expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return ""
	}
	if strings.Contains(expr, "||") {
		for _, p := range strings.Split(expr, "||") {
			if v := getValSingle(scope, strings.TrimSpace(p)); v != "" {
				return v
			}
		}
		return ""
	}
	return getValSingle(scope, expr)
}

// getValSingle 解析单个表达式：文本或属性读取。
func getValSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.Index(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		if sel == "" {
			val, _ := scope.Attr(attr)
			return strings.TrimSpace(val)
		}
		val, _ := scope.Find(sel).First().Attr(attr)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(scope.Find(expr).First().Text())
}

// abs 将相对链接转换为绝对 URL；base 为空时原样返回。
func abs(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}
