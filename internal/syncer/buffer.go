package syncer

import (
	"sort"
	"sync"

	"go-current-affairs/internal/model"
)

// Buffer 在干跑模式下收集归一化结果，避免落库。
// 以 SourceURL 去重，与存储层的唯一约束保持同一身份语义。
type Buffer struct {
	mu       sync.Mutex
	articles map[string]model.Article // key: sourceUrl
}

func NewBuffer() *Buffer {
	return &Buffer{articles: make(map[string]model.Article)}
}

// Add 收录一篇文章；已有同 URL 时保持首次版本并返回 false。
func (b *Buffer) Add(a model.Article) bool {
	if a.SourceURL == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.articles[a.SourceURL]; ok {
		return false
	}
	b.articles[a.SourceURL] = a
	return true
}

// Snapshot 返回副本，按发布日期倒序（同日按标题稳定排序）。
func (b *Buffer) Snapshot() []model.Article {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Article, 0, len(b.articles))
	for _, a := range b.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedDate.Equal(out[j].PublishedDate) {
			return out[i].PublishedDate.After(out[j].PublishedDate)
		}
		return out[i].Title < out[j].Title
	})
	return out
}
