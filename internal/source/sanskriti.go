package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-current-affairs/internal/extract"
	"go-current-affairs/internal/fetch"
	"go-current-affairs/internal/logx"
	"go-current-affairs/internal/model"
	"go-current-affairs/internal/rules"
)

// SanskritiName 为该来源的稳定标识，随文章一同落库。
const SanskritiName = "Sanskriti IAS"

const defaultSanskritiBase = "https://www.sanskritiias.com/current-affairs/date/"

// Sanskriti 抓取 Sanskriti IAS 的按日期归档页，
// 每篇文章对应页面上的一个 div.blog 容器（由预设决定）。
type Sanskriti struct {
	client  *fetch.Client
	baseURL string
	preset  rules.Preset
}

// NewSanskriti 创建适配器；baseURL 为空时使用站点默认的日期页前缀。
func NewSanskriti(cl *fetch.Client, baseURL string, preset rules.Preset) *Sanskriti {
	if baseURL == "" {
		baseURL = defaultSanskritiBase
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Sanskriti{client: cl, baseURL: baseURL, preset: preset}
}

func (s *Sanskriti) Name() string { return SanskritiName }

// DateURL 生成某天的归档页地址，形如 …/date/20-December-2025。
// 日不带前导零，月为英文全称。
func (s *Sanskriti) DateURL(date time.Time) string {
	return fmt.Sprintf("%s%d-%s-%d", s.baseURL, date.Day(), date.Month().String(), date.Year())
}

// Enumerate 抓取日期页并按文章容器切分为片段；页面无文章时返回空。
func (s *Sanskriti) Enumerate(ctx context.Context, date time.Time) ([]Fragment, error) {
	pageURL := s.DateURL(date)
	logx.Debugf("抓取日期页：%s", pageURL)
	resp, err := s.client.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("GET date page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read date page %s: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(b)))
	if err != nil {
		return nil, fmt.Errorf("parse date page %s: %w", pageURL, err)
	}
	item := "div.blog"
	if ap := s.preset.ArticlePage; ap != nil && ap.Item != "" {
		item = ap.Item
	}
	var frags []Fragment
	doc.Find(item).Each(func(_ int, sel *goquery.Selection) {
		raw, err := goquery.OuterHtml(sel)
		if err != nil || strings.TrimSpace(raw) == "" {
			return
		}
		frags = append(frags, Fragment{HTML: raw, Base: pageURL, Date: date})
	})
	if len(frags) == 0 {
		logx.Debugf("%s 无文章", pageURL)
	}
	return frags, nil
}

// Extract 委托内容抽取器完成归一化（纯函数，无 I/O）。
func (s *Sanskriti) Extract(frag Fragment) (model.Article, error) {
	return extract.Article(frag.HTML, extract.Options{
		Source:  SanskritiName,
		Date:    frag.Date,
		BaseURL: frag.Base,
		Preset:  s.preset,
	})
}
