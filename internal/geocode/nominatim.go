package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsmap/internal/logger"
	"newsmap/internal/metrics"
	"newsmap/internal/model"
)

// DefaultNominatimURL：OpenStreetMap 公共 Nominatim 搜索端点
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Provider：单次外部地理编码查询；(nil, nil) 表示服务明确返回“无结果”
type Provider interface {
	Lookup(ctx context.Context, query string) (*model.Coords, error)
}

// 文档注释：Nominatim 搜索响应条目
// 背景：jsonv2 格式下经纬度以字符串返回；仅解析本方案需要的字段。
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NominatimConfig：Nominatim 客户端参数
type NominatimConfig struct {
	// Endpoint 为空时使用公共端点
	Endpoint string
	// UserAgent 为服务使用政策要求的应用标识，必填
	UserAgent string
	// Timeout 为单次请求超时，为零时取 10s
	Timeout time.Duration
	// CountryCodes 可选，限制结果国家（如 "sg"）
	CountryCodes string
}

// Nominatim：基于 HTTP 的地理编码提供方
type Nominatim struct {
	cfg    NominatimConfig
	client *http.Client
}

// NewNominatim：构建客户端；client 为空时使用默认 http.Client（超时由请求上下文控制）
func NewNominatim(cfg NominatimConfig, client *http.Client) (*Nominatim, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, errors.New("missing geocoder user agent")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultNominatimURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Nominatim{cfg: cfg, client: client}, nil
}

// 文档注释：查询单个地名的坐标（REST）
// 参数：
// - ctx：调用方上下文；内部再叠加单次请求超时；
// - query：完整查询文本（调用方已追加国家后缀）。
// 返回：首个结果的坐标；空数组时返回 (nil, nil)。
// 约束：超时归为 ErrTimeout，非 2xx 与解析失败归为 ErrService；不在此处重试。
func (n *Nominatim) Lookup(ctx context.Context, query string) (*model.Coords, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.cfg.CountryCodes != "" {
		q.Set("countrycodes", n.cfg.CountryCodes)
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	t0 := time.Now()
	metrics.GeocodeRequestsTotal.Inc()
	logger.L().Debug("geocode_req", "query", query)
	resp, err := n.client.Do(req)
	if err != nil {
		err = classify(err)
		logger.L().Warn("geocode_http_error", "query", query, "err", err)
		return nil, err
	}
	defer resp.Body.Close()
	metrics.GeocodeDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
		return nil, fmt.Errorf("%w: http %d", ErrTimeout, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d", ErrService, resp.StatusCode)
	}
	var rs []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, classify(fmt.Errorf("decode response: %w", err))
	}
	logger.L().Debug("geocode_resp", "query", query, "results", len(rs), "duration_ms", time.Since(t0).Milliseconds())
	if len(rs) == 0 {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(rs[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(rs[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%w: bad coordinates %q,%q", ErrService, rs[0].Lat, rs[0].Lon)
	}
	return &model.Coords{Lat: lat, Lon: lon}, nil
}
