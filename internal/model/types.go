// 包 model 定义规范化后的数据模型（文章/小节/FAQ/图片/同步统计/导出结构）。
package model

import "time"

// Article 为所有来源统一归一化后的文章（落库的最小单位）。
// SourceURL 为全局唯一去重键；PublishedDate 仅保留日期语义。
// 两者作为独立列持久化，不进入 JSON 载荷，故标记 json:"-"。
type Article struct {
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	SourceURL     string    `json:"-"`
	PublishedDate time.Time `json:"-"`
	Metadata      Metadata  `json:"metadata"`
	Content       []Section `json:"content"`
	FAQs          []FAQ     `json:"faqs"`
	Images        []Image   `json:"images"`
	ExtractedAt   time.Time `json:"extractedAt"`
}

// Metadata 为考试相关性标注（Prelims/Mains/标签）。
// 空字符串视为"未提供"，序列化时直接省略，不输出 null。
type Metadata struct {
	Prelims string   `json:"prelims,omitempty"`
	Mains   string   `json:"mains,omitempty"`
	Tags    []string `json:"tags"`
}

// Section 为正文中的一个小节。
// 子标题通过重复 Heading 的兄弟小节表达嵌套（有意的扁平化）：
// 同一 Heading 下的多个 h3 各自生成一条 Section，仅 Subheading 不同。
type Section struct {
	Heading    string `json:"heading"`
	Subheading string `json:"subheading,omitempty"`
	Content    string `json:"content"`
}

// FAQ 为一组问答对。
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Image 为正文中出现的图片（按文档顺序收集）。
type Image struct {
	URL     string `json:"url"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// DateRange 为闭区间日期范围（仅日期语义，时间部分忽略）。
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange 构造日期范围并截断到零点；若 from 晚于 to 则交换。
func NewDateRange(from, to time.Time) DateRange {
	f := truncateDay(from)
	t := truncateDay(to)
	if f.After(t) {
		f, t = t, f
	}
	return DateRange{From: f, To: t}
}

// LastDays 返回截至 now 往前 days 天（含当天）的范围。
func LastDays(now time.Time, days int) DateRange {
	if days < 1 {
		days = 1
	}
	end := truncateDay(now)
	return DateRange{From: end.AddDate(0, 0, -(days - 1)), To: end}
}

// Dates 按升序展开区间内的每一天（含两端）。
func (r DateRange) Dates() []time.Time {
	var out []time.Time
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SyncRun 为单次同步的统计摘要（仅存在于一次调用内，不持久化）。
type SyncRun struct {
	Source     string    `json:"source"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Duplicate  int       `json:"duplicate"`
	Failed     int       `json:"failed"`
	Reasons    []string  `json:"reasons,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// StoredArticle 为落库后的一行（生成的主键 + 独立列 + JSON 载荷）。
type StoredArticle struct {
	ID            string    `json:"id"`
	PublishedDate string    `json:"published_date"`
	SourceURL     string    `json:"source_url"`
	Article       Article   `json:"article"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats 为导出时的汇总统计。
type Stats struct {
	ArticlesTotal int            `json:"articles_total"`
	BySource      map[string]int `json:"by_source"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Export 为 data.json 顶层结构。
type Export struct {
	Stats    Stats           `json:"stats"`
	Articles []StoredArticle `json:"articles"`
}
