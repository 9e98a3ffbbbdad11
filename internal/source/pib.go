package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"go-current-affairs/internal/extract"
	"go-current-affairs/internal/fetch"
	"go-current-affairs/internal/logx"
	"go-current-affairs/internal/model"
	"go-current-affairs/internal/textutil"
)

// PIBName 为新闻局来源的稳定标识。
const PIBName = "PIB"

const defaultPIBFeed = "https://pib.gov.in/RssMain.aspx?ModId=6&Lang=1&Regid=3"

// pibSectionHeading：RSS 条目没有小节结构，归一化为单一小节时使用的标题。
const pibSectionHeading = "Press Release"

// PIB 通过官方 RSS 枚举新闻稿。
// RSS 没有按日期的端点，每次枚举都全量拉取后按日期过滤；
// 客户端的礼貌间隔保证多日遍历不会连续打满请求。
type PIB struct {
	client  *fetch.Client
	feedURL string
}

// NewPIB 创建适配器；feedURL 为空时使用官方默认源。
func NewPIB(cl *fetch.Client, feedURL string) *PIB {
	if feedURL == "" {
		feedURL = defaultPIBFeed
	}
	return &PIB{client: cl, feedURL: feedURL}
}

func (p *PIB) Name() string { return PIBName }

// Enumerate 拉取 RSS 并过滤出指定日期的条目。
func (p *PIB) Enumerate(ctx context.Context, date time.Time) ([]Fragment, error) {
	resp, err := p.client.Get(ctx, p.feedURL)
	if err != nil {
		return nil, fmt.Errorf("GET feed %s: %w", p.feedURL, err)
	}
	defer resp.Body.Close()
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", p.feedURL, err)
	}
	var frags []Fragment
	for _, it := range feed.Items {
		ts := it.PublishedParsed
		if ts == nil {
			ts = it.UpdatedParsed
		}
		if ts == nil {
			// 无法确定日期的条目不纳入按日同步
			logx.Debugf("RSS 条目缺少日期，跳过：%s", it.Link)
			continue
		}
		if !sameDay(*ts, date) {
			continue
		}
		frags = append(frags, Fragment{
			HTML:  it.Description,
			URL:   strings.TrimSpace(it.Link),
			Title: strings.TrimSpace(it.Title),
			Date:  date,
		})
	}
	return frags, nil
}

// Extract 将 RSS 条目归一化为单小节文章：
// 描述经清洗管线（去标签/去口水文案/空白归一化）后作为正文。
func (p *PIB) Extract(frag Fragment) (model.Article, error) {
	if frag.Title == "" {
		return model.Article{}, &extract.Error{Reason: extract.ReasonMissingTitle}
	}
	if frag.URL == "" {
		return model.Article{}, &extract.Error{Reason: extract.ReasonMissingURL}
	}
	body := textutil.Clean(frag.HTML)
	if body == "" {
		return model.Article{}, &extract.Error{Reason: extract.ReasonEmptyBody}
	}
	return model.Article{
		Title:         frag.Title,
		Source:        PIBName,
		SourceURL:     frag.URL,
		PublishedDate: frag.Date,
		Metadata:      model.Metadata{Tags: []string{}},
		Content: []model.Section{{
			Heading: pibSectionHeading,
			Content: body,
		}},
		FAQs:        []model.FAQ{},
		Images:      []model.Image{},
		ExtractedAt: time.Now(),
	}, nil
}

// sameDay 按本地日历日比较（发布时间的时区差异忽略不计）。
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
