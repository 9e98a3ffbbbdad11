// 包 fetch 封装 HTTP 客户端（代理/超时/重试/礼貌间隔），用于抓取来源站点。
// 同一客户端的连续请求之间强制最小间隔，避免对第三方站点造成压力。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"
)

// Client 为带重试与礼貌间隔的 HTTP 客户端。
type Client struct {
	http  *http.Client
	retry int
	delay time.Duration

	mu   sync.Mutex
	last time.Time
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
	// Delay：连续两次请求之间的最小间隔（礼貌约定）
	Delay time.Duration
}

// StatusError 表示服务端返回了非 2xx 状态。
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %s: %s", e.Status, e.URL)
}

// New 创建客户端，支持 http/https 代理与基础超时配置。
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	cl := &http.Client{Transport: transport}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	cl.Timeout = opts.Timeout
	return &Client{http: cl, retry: opts.Retry, delay: opts.Delay}, nil
}

// Get 请求带有线性回退重试；每次真实请求前先等待礼貌间隔。
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		if err := c.politeWait(ctx); err != nil {
			return nil, err
		}
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			lastErr = fmt.Errorf("new request: %w", reqErr)
			break
		}
		// 使用常见浏览器 UA，减少 403/反爬误判；支持环境变量覆盖（CAS_UA）
		ua := os.Getenv("CAS_UA")
		if ua == "" {
			ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"
		}
		req.Header.Set("User-Agent", ua)
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			lastErr = &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
			if resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// politeWait 保证距离上一次请求至少间隔 delay；可被 ctx 取消打断。
func (c *Client) politeWait(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}
	c.mu.Lock()
	wait := c.delay - time.Since(c.last)
	c.last = time.Now().Add(maxDur(wait, 0))
	c.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func maxDur(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// IsUnreachable 判断错误是否属于"完全无法建立连接"（DNS 解析失败/拒绝连接）。
// 超时与非 2xx 状态不算：它们只影响当次抓取，不应终止整轮同步。
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return false
		}
		return true
	}
	return false
}

// 备注：若某些站点仍返回 403，可按需设置环境变量 CAS_UA 覆盖 UA。
