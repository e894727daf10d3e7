package livingapps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/langchou/fuhrpark/internal/metrics"
)

// DefaultBaseURL 平台 REST 根地址
const DefaultBaseURL = "https://my.living-apps.de/rest"

// APIError 非 2xx 响应，消息即原始响应体
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return e.Body
}

// RawRecord 列表接口中的一条记录，保持响应中的顺序
type RawRecord struct {
	ID   string
	Data json.RawMessage
}

// Client LivingApps REST 客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics.Registry
}

// Option 客户端选项
type Option func(*Client) error

// WithHTTPClient 替换底层 http.Client（保留已设置的 cookie jar 以外的配置）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout 设置请求超时，0 表示不超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// WithSessionCookies 把会话 cookie 写入 jar，之后每个请求都会携带
// header 形如 "session=abc; csrftoken=xyz"
func WithSessionCookies(header string) Option {
	return func(c *Client) error {
		if strings.TrimSpace(header) == "" {
			return nil
		}
		cookies, err := http.ParseCookie(header)
		if err != nil {
			return fmt.Errorf("parse session cookies: %w", err)
		}
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return fmt.Errorf("parse base url: %w", err)
		}
		if c.httpClient.Jar == nil {
			jar, err := cookiejar.New(nil)
			if err != nil {
				return fmt.Errorf("create cookie jar: %w", err)
			}
			c.httpClient.Jar = jar
		}
		for _, ck := range cookies {
			ck.Path = "/"
		}
		c.httpClient.Jar.SetCookies(u, cookies)
		return nil
	}
}

// WithRateLimit 限制对平台的请求速率，rps <= 0 表示不限速
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics 记录调用指标
func WithMetrics(m *metrics.Registry) Option {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// NewClient 创建客户端
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// BaseURL 返回根地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RecordURL 生成指向记录的交叉引用 URL
func (c *Client) RecordURL(appID, recordID string) string {
	return recordURL(c.baseURL, appID, recordID)
}

// call 执行请求，非 2xx 返回 *APIError
func (c *Client) call(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Fuhrpark/1.0")

	app := appFromEndpoint(endpoint)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(app, method, "error", start)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(app, method, strconv.Itoa(resp.StatusCode), start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("LivingApps call",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Method:     method,
			Path:       endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	return respBody, nil
}

func (c *Client) observe(app, method, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RemoteRequestsTotal.WithLabelValues(app, method, status).Inc()
	c.metrics.RemoteRequestDuration.WithLabelValues(app, method).Observe(time.Since(start).Seconds())
}

// ListRecords 读取整个集合
// 响应是以记录 ID 为键的对象，这里按响应顺序展开
func (c *Client) ListRecords(ctx context.Context, appID string) ([]RawRecord, error) {
	body, err := c.call(ctx, http.MethodGet, recordsPath(appID), nil)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if tok == nil {
		return []RawRecord{}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode records: expected object, got %v", tok)
	}

	records := []RawRecord{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode record key: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", key, err)
		}
		records = append(records, RawRecord{ID: key, Data: raw})
	}
	return records, nil
}

// GetRecord 读取单条记录
func (c *Client) GetRecord(ctx context.Context, appID, recordID string) (json.RawMessage, error) {
	body, err := c.call(ctx, http.MethodGet, recordPath(appID, recordID), nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// fieldsBody 写操作的请求体
type fieldsBody struct {
	Fields interface{} `json:"fields"`
}

// CreateRecord 创建记录，原样返回平台响应
func (c *Client) CreateRecord(ctx context.Context, appID string, fields interface{}) (json.RawMessage, error) {
	body, err := c.call(ctx, http.MethodPost, recordsPath(appID), fieldsBody{Fields: fields})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// UpdateRecord 部分更新记录
func (c *Client) UpdateRecord(ctx context.Context, appID, recordID string, fields interface{}) (json.RawMessage, error) {
	body, err := c.call(ctx, http.MethodPatch, recordPath(appID, recordID), fieldsBody{Fields: fields})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// DeleteRecord 删除记录，忽略响应体
func (c *Client) DeleteRecord(ctx context.Context, appID, recordID string) error {
	_, err := c.call(ctx, http.MethodDelete, recordPath(appID, recordID), nil)
	return err
}

func recordsPath(appID string) string {
	return "/apps/" + appID + "/records"
}

func recordPath(appID, recordID string) string {
	return recordsPath(appID) + "/" + recordID
}

// appFromEndpoint 从 /apps/{id}/... 取出应用 ID 作为指标标签
func appFromEndpoint(endpoint string) string {
	parts := strings.Split(strings.TrimPrefix(endpoint, "/"), "/")
	if len(parts) >= 2 && parts[0] == "apps" {
		return parts[1]
	}
	return "unknown"
}
