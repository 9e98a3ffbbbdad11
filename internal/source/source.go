// 包 source 定义来源适配器契约与各站点的具体实现。
// 编排层只依赖 Adapter 接口，新增站点不需要改动编排逻辑。
package source

import (
	"context"
	"time"

	"go-current-affairs/internal/model"
)

// Fragment 为枚举阶段产出的单篇原始片段：
// 未解析的标记文本 + 其被列出的日期。
// URL/Title 仅在来源（如 RSS）能提前给出时填写；Base 用于相对链接绝对化。
type Fragment struct {
	HTML  string
	URL   string
	Title string
	Base  string
	Date  time.Time
}

// Adapter 为来源适配器契约：
// - Enumerate 做网络 I/O（一次有限遍历，重新调用即重新抓取）
// - Extract 是纯函数：给定片段即可归一化，不再访问网络
// 抽取失败以 *extract.Error 返回，按篇隔离，由编排层计数跳过。
type Adapter interface {
	Name() string
	Enumerate(ctx context.Context, date time.Time) ([]Fragment, error)
	Extract(frag Fragment) (model.Article, error)
}
