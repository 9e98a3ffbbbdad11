// 包 syncer 负责主流程编排：
// - 按日期升序驱动来源适配器枚举片段
// - 逐篇抽取→查重→写库，失败按篇隔离并计入统计
// - 支持干跑模式（只收集内存数据，不落库）
//
// 刻意保持严格串行：同一时刻至多一个在途网络请求，
// 对第三方站点的吞吐上限是设计约定而非疏漏。
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-current-affairs/internal/config"
	"go-current-affairs/internal/extract"
	"go-current-affairs/internal/fetch"
	"go-current-affairs/internal/logx"
	"go-current-affairs/internal/model"
	"go-current-affairs/internal/source"
	"go-current-affairs/internal/store"
	"go-current-affairs/internal/vector"
)

// Runner 同步执行器，持有配置/存储/向量网关。
type Runner struct {
	cfg *config.Config
	st  *store.SQLite
	vec *vector.Qdrant
	emb vector.Embedder
	// 干跑模式：仅收集内存数据，不落库
	buf *Buffer
}

// New 创建 Runner。vec/emb 允许为 nil：向量写入路径整体跳过
//（向量生成属于未来协作方，本服务只保证载荷字段齐全）。
func New(cfg *config.Config, st *store.SQLite, vec *vector.Qdrant, emb vector.Embedder) *Runner {
	r := &Runner{cfg: cfg, st: st, vec: vec, emb: emb}
	if cfg != nil && cfg.DryRun {
		r.buf = NewBuffer()
	}
	return r
}

// Run 对单个来源执行一轮同步：逐日枚举→逐篇抽取→查重→写入。
// 返回的 SyncRun 总是完整填充（含提前终止时的部分统计）。
// 只有存储连接级故障会作为 error 逃逸；其余失败全部吸收进统计。
func (r *Runner) Run(ctx context.Context, src source.Adapter, dr model.DateRange) (run model.SyncRun, err error) {
	run = model.SyncRun{
		Source:    src.Name(),
		From:      dr.From,
		To:        dr.To,
		StartedAt: time.Now(),
	}
	defer func() { run.FinishedAt = time.Now() }()

	for _, date := range dr.Dates() {
		// 协作式取消：仅在日期之间与篇目之间检查，不打断抽取
		if cerr := ctx.Err(); cerr != nil {
			run.Reasons = append(run.Reasons, "canceled")
			return run, cerr
		}
		frags, ferr := src.Enumerate(ctx, date)
		if ferr != nil {
			// 以 ctx 自身的状态判定取消；客户端超时同样携带
			// DeadlineExceeded，不能据此误判为整轮取消
			if cerr := ctx.Err(); cerr != nil {
				run.Reasons = append(run.Reasons, "canceled")
				return run, cerr
			}
			if fetch.IsUnreachable(ferr) {
				// 来源整体不可达：本轮就此打住，带着部分统计返回
				run.Reasons = append(run.Reasons, fmt.Sprintf("source unreachable: %v", ferr))
				logx.Errorf("[%s] 来源不可达，提前结束本轮：%v", run.Source, ferr)
				return run, nil
			}
			// 单日抓取失败（超时/非 2xx 等）不影响后续日期
			run.Reasons = append(run.Reasons, fmt.Sprintf("fetch %s: %v", date.Format("2006-01-02"), ferr))
			logx.Warnf("[%s] 抓取 %s 失败：%v", run.Source, date.Format("2006-01-02"), ferr)
			continue
		}
		logx.Infof("[%s] %s 发现 %d 篇", run.Source, date.Format("2006-01-02"), len(frags))
		for _, frag := range frags {
			if cerr := ctx.Err(); cerr != nil {
				run.Reasons = append(run.Reasons, "canceled")
				return run, cerr
			}
			run.Fetched++
			if serr := r.processFragment(ctx, src, frag, &run); serr != nil {
				return run, serr
			}
		}
	}
	return run, nil
}

// processFragment 处理单篇：抽取→查重→写入（或干跑缓冲）。
// 返回非 nil 仅当存储连接已不可用，需要终止整轮。
func (r *Runner) processFragment(ctx context.Context, src source.Adapter, frag source.Fragment, run *model.SyncRun) error {
	art, err := src.Extract(frag)
	if err != nil {
		run.Failed++
		run.Reasons = append(run.Reasons, extractReason(err))
		logx.Warnf("[%s] 跳过一篇：%v", run.Source, err)
		return nil
	}

	if r.buf != nil {
		if r.buf.Add(art) {
			run.Inserted++
		} else {
			run.Duplicate++
		}
		return nil
	}

	exists, err := r.st.Exists(ctx, art.SourceURL)
	if err != nil {
		if store.IsFatal(err) {
			run.Reasons = append(run.Reasons, fmt.Sprintf("storage connection lost: %v", err))
			return err
		}
		run.Failed++
		run.Reasons = append(run.Reasons, fmt.Sprintf("exists %s: %v", art.SourceURL, err))
		return nil
	}
	if exists {
		run.Duplicate++
		logx.Debugf("[%s] 已存在：%s", run.Source, art.SourceURL)
		return nil
	}

	id, err := r.st.Insert(ctx, art)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		// 并发竞争时退化为良性的重复跳过
		run.Duplicate++
	case store.IsFatal(err):
		run.Reasons = append(run.Reasons, fmt.Sprintf("storage connection lost: %v", err))
		return err
	case err != nil:
		run.Failed++
		run.Reasons = append(run.Reasons, fmt.Sprintf("insert %s: %v", art.SourceURL, err))
		logx.Warnf("[%s] 写入失败：%v", run.Source, err)
	default:
		run.Inserted++
		logx.Infof("[%s] 已入库：%s", run.Source, art.Title)
		r.writeVector(ctx, id, art)
	}
	return nil
}

// writeVector 尽力写入向量库；任何失败仅告警，不影响同步结果。
func (r *Runner) writeVector(ctx context.Context, id string, a model.Article) {
	if r.vec == nil || r.emb == nil {
		return
	}
	vec, err := r.emb.Embed(ctx, flattenContent(a))
	if err != nil {
		logx.Warnf("向量化失败 %s：%v", a.SourceURL, err)
		return
	}
	if err := r.vec.Upsert(ctx, id, vec, vector.PayloadFor(a)); err != nil {
		logx.Warnf("写入向量库失败 %s：%v", a.SourceURL, err)
	}
}

// flattenContent 将小节正文拼为向量化输入文本。
func flattenContent(a model.Article) string {
	var b strings.Builder
	b.WriteString(a.Title)
	for _, s := range a.Content {
		b.WriteString("\n")
		b.WriteString(s.Content)
	}
	return b.String()
}

// extractReason 将抽取错误归一为统计原因串（带上失败类别）。
func extractReason(err error) string {
	var ee *extract.Error
	if errors.As(err, &ee) {
		return ee.Reason
	}
	return err.Error()
}

// BufferData 返回干跑模式下收集的文章（按发布日期倒序）。
func (r *Runner) BufferData() []model.Article {
	if r == nil || r.buf == nil {
		return nil
	}
	return r.buf.Snapshot()
}
