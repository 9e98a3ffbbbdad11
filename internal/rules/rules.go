// 包 rules 负责加载并提供来源解析规则（rules.yaml），
// 以预设名（如 sanskriti/pib）组织 CSS 选择器与 FAQ 判定规则，
// 用于文章列表页/文章片段的抽取。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为预设名，值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个来源预设的解析规则集合。
type Preset struct {
	ArticlePage *ArticlePage `yaml:"article_page"`
}

// ArticlePage 描述文章片段的选择器与抽取规则：
// - item：日期页上每篇文章的容器
// - title：标题链接（支持 "选择器@属性" 与 "||" 多方案回退）
// - meta_table：考点（Prelims/Mains）表格单元
// - image/image_filter：正文图片选择器与 URL 子串过滤
// - faq_heading：FAQ 区块的标题文本（大小写不敏感）
// - question_prefixes：判定问句的前缀集合（按先后尝试）
type ArticlePage struct {
	Item             string   `yaml:"item"`
	Title            string   `yaml:"title"`
	TitleURL         string   `yaml:"title_url"`
	MetaTable        string   `yaml:"meta_table"`
	Image            string   `yaml:"image"`
	ImageFilter      string   `yaml:"image_filter"`
	FAQHeading       string   `yaml:"faq_heading"`
	QuestionPrefixes []string `yaml:"question_prefixes"`
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按名称获取预设（不区分大小写），若为空或不存在则回退到 "default"。
func (r *Rules) GetPreset(name string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	if name == "" {
		name = "default"
	}
	if p, ok := r.Presets[name]; ok {
		return p, true
	}
	lower := strings.ToLower(name)
	for k, v := range r.Presets {
		if strings.ToLower(k) == lower {
			return v, true
		}
	}
	if p, ok := r.Presets["default"]; ok {
		return p, true
	}
	return Preset{}, false
}

// SanskritiDefault 返回 Sanskriti IAS 的内置预设；
// rules.yaml 缺失或未覆盖对应主题时使用。
func SanskritiDefault() Preset {
	return Preset{ArticlePage: &ArticlePage{
		Item:             "div.blog",
		Title:            "h4 a.text-danger||h4 a",
		TitleURL:         "h4 a.text-danger@href||h4 a@href",
		MetaTable:        "table.table-bordered td",
		Image:            "img.img-fluid",
		ImageFilter:      "uploaded_files/images",
		FAQHeading:       "FAQS",
		QuestionPrefixes: []string{"Q.", "Q"},
	}}
}

// Resolve 先查 rules.yaml，查不到则回退内置预设。
func Resolve(r *Rules, theme string) Preset {
	if r != nil {
		if p, ok := r.GetPreset(theme); ok && p.ArticlePage != nil {
			return p
		}
	}
	return SanskritiDefault()
}
