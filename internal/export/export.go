// 包 export 负责导出：将库中（或干跑缓冲中）的文章写为 data.json。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-current-affairs/internal/model"
	"go-current-affairs/internal/store"
)

// 全局导出上限保护：按发布日期倒序仅保留最新 150 篇
const maxExportArticles = 150

// ToJSON 查询统计与最近文章并写入 JSON 文件（带缩进格式）。
func ToJSON(ctx context.Context, s *store.SQLite, path string) error {
	articles, err := s.ListRecent(ctx, maxExportArticles, "")
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return write(path, model.Export{Stats: stats, Articles: articles})
}

// ToJSONData 直接将干跑收集的内存文章写成 data.json，带上限与统计。
// 干跑未落库，行 id 与建库时间留空。
func ToJSONData(ctx context.Context, articles []model.Article, path string) error {
	if len(articles) > maxExportArticles {
		articles = articles[:maxExportArticles]
	}
	st := model.Stats{BySource: map[string]int{}}
	rows := make([]model.StoredArticle, 0, len(articles))
	for _, a := range articles {
		st.BySource[a.Source]++
		rows = append(rows, model.StoredArticle{
			PublishedDate: a.PublishedDate.Format("2006-01-02"),
			SourceURL:     a.SourceURL,
			Article:       a,
		})
	}
	st.ArticlesTotal = len(rows)
	st.UpdatedAt = time.Now()
	return write(path, model.Export{Stats: st, Articles: rows})
}

func write(path string, out model.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
