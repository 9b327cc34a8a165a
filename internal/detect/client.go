package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/SmartParkVision/SmartParkVision/internal/common/config"
	"github.com/SmartParkVision/SmartParkVision/internal/common/logger"
	"github.com/SmartParkVision/SmartParkVision/internal/common/middleware"
	"github.com/go-resty/resty/v2"
)

// BrandDetection 品牌分类结果。
type BrandDetection struct {
	Brand      string  `json:"brand"`
	Confidence float64 `json:"confidence"`
}

// TextDetection 单条文本识别结果。
type TextDetection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// BrandDetector 品牌分类器。
type BrandDetector interface {
	DetectBrand(ctx context.Context, imagePath string) BrandDetection
}

// TextDetector 文本识别器。
type TextDetector interface {
	DetectTexts(ctx context.Context, imagePath string) []TextDetection
}

// 识别服务响应
type brandResponse struct {
	Brand      string  `json:"brand"`
	Confidence float64 `json:"confidence"`
}

type textResponse struct {
	Results []TextDetection `json:"results"`
}

// Client 识别服务 HTTP 客户端。识别失败不是业务错误：
// 品牌降级为 unknown，文本降级为空列表，由解析层走默认值路径。
// 外层熔断器在识别服务持续不可用时快速失败，避免拖垮入场接口。
type Client struct {
	brand   *resty.Client
	text    *resty.Client
	breaker *middleware.CircuitBreaker
	log     logger.Logger
}

// NewClient 按配置创建识别客户端。
func NewClient(cfg config.DetectorConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	newRestyClient := func(baseURL string) *resty.Client {
		return resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(5 * time.Second).
			SetHeader("Accept", "application/json")
	}

	return &Client{
		brand:   newRestyClient(cfg.BrandURL),
		text:    newRestyClient(cfg.TextURL),
		breaker: middleware.NewCircuitBreaker("detector", 5, 30*time.Second),
		log:     log,
	}
}

// DetectBrand 调用品牌分类服务；任何失败都降级为 unknown / 0。
func (c *Client) DetectBrand(ctx context.Context, imagePath string) BrandDetection {
	fallback := BrandDetection{Brand: "unknown", Confidence: 0}

	var out brandResponse
	err := c.breaker.Call(ctx, func() error {
		resp, err := c.brand.R().
			SetContext(ctx).
			SetFile("image", imagePath).
			SetResult(&out).
			Post("/detect/brand")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("brand detector returned %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		if c.log != nil {
			c.log.Warnf("brand detection failed, falling back to unknown: %v", err)
		}
		return fallback
	}
	if out.Brand == "" {
		return fallback
	}
	return BrandDetection{Brand: out.Brand, Confidence: out.Confidence}
}

// DetectTexts 调用文本识别服务；任何失败都降级为空列表。
func (c *Client) DetectTexts(ctx context.Context, imagePath string) []TextDetection {
	var out textResponse
	err := c.breaker.Call(ctx, func() error {
		resp, err := c.text.R().
			SetContext(ctx).
			SetFile("image", imagePath).
			SetResult(&out).
			Post("/detect/text")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("text detector returned %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		if c.log != nil {
			c.log.Warnf("text detection failed, falling back to empty: %v", err)
		}
		return nil
	}
	return out.Results
}
