// READ-ONLY REST CLIENT FOR BYBIT V5 (LINEAR / USDT SETTLED)
// RESTY + INTERNAL RETRY
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	logger "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -----------------------------
// CONFIG
// -----------------------------
const (
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 4 * time.Second

	positionPageLimit = 200
	orderPageLimit    = 50
	closedPnLMaxLimit = 100
	maxPages          = 20
)

// ErrUnexpectedStatus is returned when Bybit answers with a non-200 HTTP status.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// -----------------------------
// AUTHENTICATED CLIENT
// -----------------------------
type BybitClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow string
	category   string
	settleCoin string
	http       *resty.Client
	now        func() time.Time
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		// a cancelled caller must not be retried
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

// NewBybitClient builds a signed client. Every request is bounded by
// cfg.RemoteTimeout, retries included.
func NewBybitClient(cfg Config) *BybitClient {
	baseURL := cfg.BybitBaseURL
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
		logger.WithField("base_url", baseURL).Warn("No base URL provided, using default")
	}
	timeout := cfg.RemoteTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &BybitClient{
		apiKey:     cfg.BybitAPIKey,
		apiSecret:  cfg.BybitAPISecret,
		baseURL:    baseURL,
		recvWindow: orDefault(cfg.BybitRecvWindow, "5000"),
		category:   orDefault(cfg.BybitCategory, "linear"),
		settleCoin: orDefault(cfg.BybitSettleCoin, "USDT"),
		http:       httpClient,
		now:        time.Now,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// signRequest computes the v5 signature: HMAC_SHA256(secret, timestamp + apiKey + recvWindow + query).
func signRequest(timestamp, apiKey, recvWindow, query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + apiKey + recvWindow + query))
	return hex.EncodeToString(mac.Sum(nil))
}

// doGet performs a signed GET. query must already be encoded (url.Values.Encode
// sorts keys, which is what resty sends as well).
func (c *BybitClient) doGet(ctx context.Context, path string, query url.Values) (*APIResponse, error) {
	encoded := query.Encode()
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	sig := signRequest(timestamp, c.apiKey, c.recvWindow, encoded, c.apiSecret)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-BAPI-API-KEY", c.apiKey).
		SetHeader("X-BAPI-TIMESTAMP", timestamp).
		SetHeader("X-BAPI-RECV-WINDOW", c.recvWindow).
		SetHeader("X-BAPI-SIGN", sig)

	if encoded != "" {
		req = req.SetQueryString(encoded)
	}

	logger.WithFields(logger.Fields{
		"method": http.MethodGet,
		"path":   path,
		"query":  encoded,
	}).Debug("Bybit HTTP request")

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("bybit GET %s: %w", path, err)
	}

	raw := resp.Body()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bybit GET %s: %w: %d %s", path, ErrUnexpectedStatus, resp.StatusCode(), string(raw))
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("bybit GET %s: decode envelope: %w", path, err)
	}

	if apiResp.RetCode != RetCodeOK {
		logger.WithFields(logger.Fields{
			"path":     path,
			"ret_code": apiResp.RetCode,
			"ret_msg":  apiResp.RetMsg,
			"meaning":  GetErrorMsg(apiResp.RetCode),
		}).Warn("Bybit API returned a non-success code")
	}

	return &apiResp, nil
}

// fetchPages walks nextPageCursor until the cursor is empty, the venue answers
// with a non-zero retCode, or maxPages is reached. The retCode of the failing
// page is returned alongside whatever was collected before it.
func fetchPages[T any](ctx context.Context, c *BybitClient, path string, query url.Values) ([]T, int, string, error) {
	var all []T
	for page := 0; page < maxPages; page++ {
		resp, err := c.doGet(ctx, path, query)
		if err != nil {
			return nil, 0, "", err
		}
		if resp.RetCode != RetCodeOK {
			return nil, resp.RetCode, resp.RetMsg, nil
		}

		var result listResult[T]
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, 0, "", fmt.Errorf("bybit GET %s: decode result: %w", path, err)
		}
		all = append(all, result.List...)

		if result.NextPageCursor == "" {
			return all, RetCodeOK, resp.RetMsg, nil
		}
		query.Set("cursor", result.NextPageCursor)
	}

	logger.WithFields(logger.Fields{
		"path":      path,
		"max_pages": maxPages,
	}).Warn("Bybit pagination stopped at page cap")

	return all, RetCodeOK, "", nil
}

// -----------------------------
// POSITIONS
// -----------------------------

// GetOpenPositions returns every position slot of the settle coin, including
// empty ones; callers filter on size.
func (c *BybitClient) GetOpenPositions(ctx context.Context) (*PositionListResponse, error) {
	query := url.Values{}
	query.Set("category", c.category)
	query.Set("settleCoin", c.settleCoin)
	query.Set("limit", strconv.Itoa(positionPageLimit))

	list, code, msg, err := fetchPages[PositionInfo](ctx, c, "/v5/position/list", query)
	if err != nil {
		return nil, err
	}
	return &PositionListResponse{RetCode: code, RetMsg: msg, List: list}, nil
}

// GetClosedPnL returns the most recent realized-close events, newest first.
func (c *BybitClient) GetClosedPnL(ctx context.Context, limit int) (*ClosedPnLListResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > closedPnLMaxLimit {
		limit = closedPnLMaxLimit
	}

	query := url.Values{}
	query.Set("category", c.category)
	query.Set("limit", strconv.Itoa(limit))

	resp, err := c.doGet(ctx, "/v5/position/closed-pnl", query)
	if err != nil {
		return nil, err
	}
	out := &ClosedPnLListResponse{RetCode: resp.RetCode, RetMsg: resp.RetMsg}
	if resp.RetCode != RetCodeOK {
		return out, nil
	}

	var result listResult[ClosedPnLInfo]
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("bybit closed-pnl: decode result: %w", err)
	}
	out.List = result.List
	return out, nil
}

// -----------------------------
// ORDERS
// -----------------------------

// GetActiveOrders returns every open or untriggered order of the settle coin.
func (c *BybitClient) GetActiveOrders(ctx context.Context) (*OrderListResponse, error) {
	query := url.Values{}
	query.Set("category", c.category)
	query.Set("settleCoin", c.settleCoin)
	query.Set("limit", strconv.Itoa(orderPageLimit))

	list, code, msg, err := fetchPages[OrderInfo](ctx, c, "/v5/order/realtime", query)
	if err != nil {
		return nil, err
	}
	return &OrderListResponse{RetCode: code, RetMsg: msg, List: list}, nil
}

// GetOrderHistory looks up a single order by id in the order history.
func (c *BybitClient) GetOrderHistory(ctx context.Context, orderID string, limit int) (*OrderListResponse, error) {
	if limit <= 0 {
		limit = 1
	}

	query := url.Values{}
	query.Set("category", c.category)
	query.Set("orderId", orderID)
	query.Set("limit", strconv.Itoa(limit))

	resp, err := c.doGet(ctx, "/v5/order/history", query)
	if err != nil {
		return nil, err
	}
	out := &OrderListResponse{RetCode: resp.RetCode, RetMsg: resp.RetMsg}
	if resp.RetCode != RetCodeOK {
		return out, nil
	}

	var result listResult[OrderInfo]
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("bybit order history: decode result: %w", err)
	}
	out.List = result.List
	return out, nil
}
