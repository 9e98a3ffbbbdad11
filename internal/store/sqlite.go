// 包 store 提供存储实现（SQLite），包含表迁移/查重/写入/查询等操作。
// 每篇文章一行：生成的 uuid 主键 + 发布日期与唯一 source_url 独立列 +
// 规范化 JSON 载荷。source_url 上的唯一约束是全局幂等性的最终防线。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"go-current-affairs/internal/model"
)

// ErrDuplicate 表示 source_url 已存在。首写生效，后写永远跳过，不做合并。
var ErrDuplicate = errors.New("article exists")

const dateLayout = "2006-01-02"

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ca_articles (
            id TEXT PRIMARY KEY,
            published_date TEXT NOT NULL,
            source_url TEXT NOT NULL UNIQUE,
            article TEXT NOT NULL,
            created_at TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_ca_articles_published_date ON ca_articles(published_date);`,
		`CREATE INDEX IF NOT EXISTS idx_ca_articles_source ON ca_articles(json_extract(article, '$.source'));`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Reset 清空业务数据表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ca_articles`); err != nil {
		return fmt.Errorf("delete articles: %w", err)
	}
	return nil
}

// Exists 查询 source_url 是否已入库。
func (s *SQLite) Exists(ctx context.Context, sourceURL string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM ca_articles WHERE source_url = ?`, sourceURL).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", sourceURL, err)
	}
	return true, nil
}

// Insert 写入一篇文章并返回生成的行 id；source_url 冲突时返回 ErrDuplicate。
// JSON 载荷即规范化 Article 的序列化结果；已存在的行绝不更新。
func (s *SQLite) Insert(ctx context.Context, a model.Article) (string, error) {
	if a.SourceURL == "" {
		return "", errors.New("article.sourceUrl required")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal article %s: %w", a.SourceURL, err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `INSERT INTO ca_articles(id, published_date, source_url, article, created_at)
        VALUES(?,?,?,?,?)`,
		id, a.PublishedDate.Format(dateLayout), a.SourceURL, string(payload), time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert article %s: %w", a.SourceURL, err)
	}
	return id, nil
}

// ListRecent 按发布日期倒序返回最近的文章；source 非空时按来源过滤。
func (s *SQLite) ListRecent(ctx context.Context, limit int, source string) ([]model.StoredArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT id, published_date, source_url, article, created_at FROM ca_articles`
	args := []any{}
	if source != "" {
		q += ` WHERE json_extract(article, '$.source') = ?`
		args = append(args, source)
	}
	q += ` ORDER BY published_date DESC, created_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()
	var out []model.StoredArticle
	for rows.Next() {
		var sa model.StoredArticle
		var payload string
		var createdAt sql.NullTime
		if err := rows.Scan(&sa.ID, &sa.PublishedDate, &sa.SourceURL, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &sa.Article); err != nil {
			return nil, fmt.Errorf("unmarshal article %s: %w", sa.SourceURL, err)
		}
		sa.Article.SourceURL = sa.SourceURL
		if d, err := time.Parse(dateLayout, sa.PublishedDate); err == nil {
			sa.Article.PublishedDate = d
		}
		if createdAt.Valid {
			sa.CreatedAt = createdAt.Time
		}
		out = append(out, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}

// Stats 统计汇总：总量、按来源分布、更新时间。
func (s *SQLite) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{BySource: map[string]int{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM ca_articles`).Scan(&st.ArticlesTotal); err != nil {
		return st, fmt.Errorf("count articles: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(json_extract(article, '$.source'), ''), COUNT(1) FROM ca_articles GROUP BY 1`)
	if err != nil {
		return st, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			return st, fmt.Errorf("scan source count: %w", err)
		}
		st.BySource[src] = n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("iterate source counts: %w", err)
	}
	st.UpdatedAt = time.Now()
	return st, nil
}

// isUniqueViolation 识别唯一约束冲突（并发竞争时的兜底路径）。
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsFatal 判断存储错误是否属于连接级故障；此类错误应提前终止整轮同步。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
