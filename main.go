// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志、HTTP 客户端、数据库与向量网关
// - 支持连通性自检（-check）与干跑导出（-export data.json）
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-current-affairs/internal/config"
	"go-current-affairs/internal/export"
	"go-current-affairs/internal/fetch"
	"go-current-affairs/internal/logx"
	"go-current-affairs/internal/model"
	"go-current-affairs/internal/rules"
	"go-current-affairs/internal/source"
	"go-current-affairs/internal/store"
	"go-current-affairs/internal/syncer"
	"go-current-affairs/internal/vector"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		days       = flag.Int("days", 0, "days to look back (overrides DAYS_BACK)")
		fromStr    = flag.String("from", "", "range start YYYY-MM-DD (with -to)")
		toStr      = flag.String("to", "", "range end YYYY-MM-DD (with -from)")
		sourceName = flag.String("source", "", "sync a single source by name")
		exportPath = flag.String("export", "", "write data.json to this path after the run")
		dryRun     = flag.Bool("dry-run", false, "extract without persisting (implies in-memory dedupe)")
		check      = flag.Bool("check", false, "probe sources and databases, then exit")
	)
	flag.Parse()

	// 1) 加载配置与规则
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *dryRun {
		cfg.DryRun = true
	}
	var rl *rules.Rules
	if *rulesPath != "" {
		if r, err := rules.Load(*rulesPath); err == nil {
			rl = r
		} else {
			log.Printf("load rules failed: %v", err)
		}
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	// 3) 初始化 HTTP 客户端（含代理/重试/礼貌间隔）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		Retry:      cfg.Fetch.Retry,
		Delay:      time.Duration(cfg.Fetch.DelayMS) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}

	// 4) 组装来源适配器（可用 -source 过滤）
	adapters := buildAdapters(cfg, cl, rl, *sourceName)
	if len(adapters) == 0 {
		log.Fatalf("no source matched %q", *sourceName)
	}

	// 支持 Ctrl-C 协作式取消：部分统计照常输出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5) 数据存储：干跑模式不打开数据库；正常模式打开并按需重置
	var st *store.SQLite
	if !cfg.DryRun {
		st, err = store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer st.Close()
		if cfg.ResetOnStart {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("启动清理数据库失败：%v", err)
			} else {
				logx.Infof("已清理数据库表（ca_articles）")
			}
		}
	} else {
		logx.Infof("干跑模式：跳过数据库打开")
	}

	// 6) 向量网关（可选）：探活失败则本轮跳过向量写入
	var vec *vector.Qdrant
	if cfg.Qdrant.Enabled && !cfg.DryRun {
		q := vector.New(cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize)
		if err := q.Check(ctx); err != nil {
			logx.Warnf("向量库不可用，本轮跳过向量写入：%v", err)
		} else if err := q.EnsureCollection(ctx); err != nil {
			logx.Warnf("创建向量集合失败，本轮跳过向量写入：%v", err)
		} else {
			vec = q
		}
	}

	if *check {
		// 7) 自检：逐来源试抓一天 + 存储/向量探活，随后退出
		runCheck(ctx, adapters, st, vec)
		return
	}

	dr, err := dateRange(cfg, *days, *fromStr, *toStr)
	if err != nil {
		log.Fatalf("date range: %v", err)
	}

	// 8) 运行同步：逐来源串行，一个来源失败不影响下一个
	// 向量生成由未来的协作方接入，此处 Embedder 留空
	run := syncer.New(cfg, st, vec, nil)
	logx.Infof("开始同步：%s ~ %s 干跑=%v", dr.From.Format("2006-01-02"), dr.To.Format("2006-01-02"), cfg.DryRun)
	fatal := false
	for _, ad := range adapters {
		summary, err := run.Run(ctx, ad, dr)
		logSummary(summary)
		if err != nil {
			logx.Errorf("[%s] 本轮异常终止：%v", ad.Name(), err)
			fatal = true
			break
		}
	}

	// 9) 导出：干跑导内存数据，正常模式导库内最新数据
	if *exportPath != "" {
		if cfg.DryRun {
			if err := export.ToJSONData(ctx, run.BufferData(), *exportPath); err != nil {
				log.Fatalf("export json: %v", err)
			}
		} else if err := export.ToJSON(ctx, st, *exportPath); err != nil {
			log.Fatalf("export json: %v", err)
		}
		logx.Infof("已导出 %s", *exportPath)
	}
	if fatal {
		os.Exit(1)
	}
}

// buildAdapters 按配置组装来源适配器；filter 非空时只保留同名来源。
func buildAdapters(cfg *config.Config, cl *fetch.Client, rl *rules.Rules, filter string) []source.Adapter {
	var out []source.Adapter
	for _, s := range cfg.EnabledSources() {
		if filter != "" && s.Name != filter {
			continue
		}
		switch s.Name {
		case "sanskriti":
			out = append(out, source.NewSanskriti(cl, s.BaseURL, rules.Resolve(rl, s.Theme)))
		case "pib":
			out = append(out, source.NewPIB(cl, s.FeedURL))
		default:
			logx.Warnf("未知来源：%s（跳过）", s.Name)
		}
	}
	return out
}

// dateRange 根据 flags 与配置确定同步范围：显式区间优先，其次回看天数。
func dateRange(cfg *config.Config, days int, fromStr, toStr string) (model.DateRange, error) {
	if fromStr != "" || toStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return model.DateRange{}, err
		}
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return model.DateRange{}, err
		}
		return model.NewDateRange(from, to), nil
	}
	if days <= 0 {
		days = cfg.DaysBack
	}
	return model.LastDays(time.Now(), days), nil
}

// runCheck 对每个来源试抓一天并探测存储/向量库，仅打印结果。
func runCheck(ctx context.Context, adapters []source.Adapter, st *store.SQLite, vec *vector.Qdrant) {
	yesterday := time.Now().AddDate(0, 0, -1)
	for _, ad := range adapters {
		frags, err := ad.Enumerate(ctx, yesterday)
		if err != nil {
			logx.Errorf("✗ %s：%v", ad.Name(), err)
			continue
		}
		logx.Infof("✓ %s：%d 篇", ad.Name(), len(frags))
	}
	if st != nil {
		if _, err := st.Stats(ctx); err != nil {
			logx.Errorf("✗ 数据库：%v", err)
		} else {
			logx.Infof("✓ 数据库")
		}
	}
	if vec != nil {
		if err := vec.Check(ctx); err != nil {
			logx.Errorf("✗ 向量库：%v", err)
		} else {
			logx.Infof("✓ 向量库")
		}
	}
}

// logSummary 输出单来源的同步统计与失败原因。
func logSummary(run model.SyncRun) {
	logx.Infof("[%s] 同步完成：fetched=%d inserted=%d duplicate=%d failed=%d 耗时=%s",
		run.Source, run.Fetched, run.Inserted, run.Duplicate, run.Failed,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	for _, reason := range run.Reasons {
		logx.Warnf("[%s] 原因：%s", run.Source, reason)
	}
}
