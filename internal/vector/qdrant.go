// 包 vector 为未来语义检索提供只写的 Qdrant 网关（REST）。
// 本服务不生成向量：Embedder 由未来的协作方提供，缺省时整条写入路径跳过。
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-current-affairs/internal/model"
)

// Embedder 为外部向量化协作方的接口占位。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Payload 为写入向量库的文章元信息，供未来的语义检索直接返回。
type Payload struct {
	Source        string `json:"source"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
}

// PayloadFor 从规范化文章提取向量库载荷。
func PayloadFor(a model.Article) Payload {
	return Payload{
		Source:        a.Source,
		Title:         a.Title,
		URL:           a.SourceURL,
		PublishedDate: a.PublishedDate.Format("2006-01-02"),
	}
}

// Qdrant 为 REST 客户端；仅用到 readyz 探活、建集合与写点三个端点。
type Qdrant struct {
	baseURL    string
	collection string
	vectorSize int
	http       *http.Client
}

// New 创建客户端；collection/vectorSize 需与未来检索方约定一致。
func New(baseURL, collection string, vectorSize int) *Qdrant {
	return &Qdrant{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		vectorSize: vectorSize,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Check 探测服务可用性（GET /readyz）。
func (q *Qdrant) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"/readyz", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := q.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant readyz: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant readyz: status %s", resp.Status)
	}
	return nil
}

// EnsureCollection 创建集合（已存在时直接返回）。
func (q *Qdrant) EnsureCollection(ctx context.Context) error {
	u := q.baseURL + "/collections/" + q.collection
	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil); err == nil {
		if resp, err := q.http.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
	body := map[string]any{
		"vectors": map[string]any{"size": q.vectorSize, "distance": "Cosine"},
	}
	return q.put(ctx, u, body)
}

// Upsert 写入一个点：文章 id + 向量 + 元信息载荷。
func (q *Qdrant) Upsert(ctx context.Context, id string, vec []float32, p Payload) error {
	body := map[string]any{
		"points": []map[string]any{{"id": id, "vector": vec, "payload": p}},
	}
	return q.put(ctx, q.baseURL+"/collections/"+q.collection+"/points", body)
}

// put 序列化并发送 PUT 请求，非 2xx 一律视为错误。
func (q *Qdrant) put(ctx context.Context, u string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := q.http.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("PUT %s: status %s: %s", u, resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
