package spot

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/pkg/exchanges/common"
)

// Config holds Binance credentials and environment selection.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int64 // ms
}

// Client is a Binance spot trading client implementing common.Gateway.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	timeSync   *common.TimeSync
	weights    *common.WeightTracker
}

func New(cfg Config) *Client {
	base := "https://api.binance.com"
	if cfg.Testnet {
		base = "https://testnet.binance.vision"
	}
	if cfg.RecvWindow == 0 {
		cfg.RecvWindow = 5000
	}
	c := &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	c.timeSync = common.NewTimeSync(c.GetServerTime)
	// Spot budget: 1200 weight per minute.
	c.weights = common.NewWeightTracker(1200, time.Minute)
	return c
}

// Ping verifies connectivity and measures the server clock offset. Called
// once at startup; a failure here is fatal for the process.
func (c *Client) Ping() error {
	return c.timeSync.Sync()
}

// GetSymbolRules fetches exchangeInfo filters for one symbol.
func (c *Client) GetSymbolRules(ctx context.Context, symbol string) (common.SymbolRules, error) {
	u := fmt.Sprintf("%s/api/v3/exchangeInfo?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return common.SymbolRules{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return common.SymbolRules{}, err
	}

	var resp struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType  string `json:"filterType"`
				TickSize    string `json:"tickSize"`
				StepSize    string `json:"stepSize"`
				MinQty      string `json:"minQty"`
				MinNotional string `json:"minNotional"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.SymbolRules{}, fmt.Errorf("decode exchangeInfo: %w", err)
	}
	if len(resp.Symbols) == 0 {
		return common.SymbolRules{}, fmt.Errorf("binance: symbol %s not found", symbol)
	}

	rules := common.SymbolRules{Symbol: resp.Symbols[0].Symbol}
	for _, f := range resp.Symbols[0].Filters {
		switch f.FilterType {
		case "PRICE_FILTER":
			rules.PriceTick = parseDecimal(f.TickSize)
		case "LOT_SIZE":
			rules.QtyStep = parseDecimal(f.StepSize)
			rules.MinQty = parseDecimal(f.MinQty)
		case "NOTIONAL", "MIN_NOTIONAL":
			rules.MinNotional = parseDecimal(f.MinNotional)
		}
	}
	return rules, nil
}

// GetFreeBalance returns the free balance for a single asset.
func (c *Client) GetFreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return decimal.Zero, errors.New("binance: API key/secret required")
	}
	params := url.Values{}
	c.stampAndWindow(params)

	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/api/v3/account", params)
	if err != nil {
		return decimal.Zero, err
	}

	var info struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return decimal.Zero, fmt.Errorf("decode account info: %w", err)
	}
	for _, b := range info.Balances {
		if b.Asset == asset {
			return parseDecimal(b.Free), nil
		}
	}
	return decimal.Zero, nil
}

// SubmitOrder places a LIMIT or MARKET order and returns the immediate ack,
// including any quantity already executed.
func (c *Client) SubmitOrder(ctx context.Context, req common.OrderRequest) (common.OrderAck, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return common.OrderAck{}, errors.New("binance: API key/secret required")
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	ordType := req.Type
	if ordType == "" {
		ordType = common.OrderTypeLimit
	}
	params.Set("type", string(ordType))
	params.Set("quantity", req.Qty.String())
	if ordType == common.OrderTypeLimit {
		params.Set("price", req.Price.String())
		tif := req.TimeInForce
		if tif == "" {
			tif = common.TIFGTC
		}
		params.Set("timeInForce", string(tif))
	}
	if req.ClientID != "" {
		params.Set("newClientOrderId", req.ClientID)
	}
	params.Set("newOrderRespType", "RESULT")
	c.stampAndWindow(params)

	body, err := c.doSigned(ctx, http.MethodPost, c.baseURL+"/api/v3/order", params)
	if err != nil {
		return common.OrderAck{}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderAck{}, fmt.Errorf("decode order response: %w", err)
	}
	return common.OrderAck{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Status:      mapStatus(resp.Status),
		Price:       parseDecimal(resp.Price),
		OrigQty:     parseDecimal(resp.OrigQty),
		ExecutedQty: parseDecimal(resp.ExecutedQty),
		CumQuoteQty: parseDecimal(resp.CumQuoteQty),
	}, nil
}

// QueryOrder fetches the state of a single order by exchange id.
func (c *Client) QueryOrder(ctx context.Context, symbol, orderID string) (common.OrderState, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return common.OrderState{}, errors.New("binance: API key/secret required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	c.stampAndWindow(params)

	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/api/v3/order", params)
	if err != nil {
		return common.OrderState{}, err
	}
	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return common.OrderState{}, fmt.Errorf("decode order: %w", err)
	}
	return common.OrderState{
		Status:      mapStatus(resp.Status),
		ExecutedQty: parseDecimal(resp.ExecutedQty),
		CumQuoteQty: parseDecimal(resp.CumQuoteQty),
	}, nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return errors.New("binance: API key/secret required")
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	c.stampAndWindow(params)

	_, err := c.doSigned(ctx, http.MethodDelete, c.baseURL+"/api/v3/order", params)
	return err
}

// GetOpenOrders returns resting orders; symbol empty means all symbols.
// Used by the startup reconciliation pass.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return nil, errors.New("binance: API key/secret required")
	}
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	c.stampAndWindow(params)

	body, err := c.doSigned(ctx, http.MethodGet, c.baseURL+"/api/v3/openOrders", params)
	if err != nil {
		return nil, err
	}
	var raw []orderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode open orders: %w", err)
	}
	orders := make([]OpenOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, OpenOrder{
			Symbol:  o.Symbol,
			OrderID: strconv.FormatInt(o.OrderID, 10),
			Side:    common.Side(o.Side),
			Price:   parseDecimal(o.Price),
			OrigQty: parseDecimal(o.OrigQty),
			Status:  mapStatus(o.Status),
			Time:    time.UnixMilli(o.Time),
		})
	}
	return orders, nil
}

// GetServerTime fetches server time (ms).
func (c *Client) GetServerTime() (int64, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/api/v3/time")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("server time status %d: %s", resp.StatusCode, string(b))
	}
	var res struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return 0, err
	}
	return res.ServerTime, nil
}

// OpenOrder is a simplified view of a resting order for reconciliation.
type OpenOrder struct {
	Symbol  string
	OrderID string
	Side    common.Side
	Price   decimal.Decimal
	OrigQty decimal.Decimal
	Status  common.OrderStatus
	Time    time.Time
}

// stampAndWindow appends the signed-request timestamp and recvWindow.
func (c *Client) stampAndWindow(params url.Values) {
	ts := time.Now().UnixMilli()
	if c.timeSync != nil && c.timeSync.Offset() != 0 {
		ts = c.timeSync.Now()
	}
	params.Set("timestamp", strconv.FormatInt(ts, 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow, 10))
}

// doSigned signs the query and performs the HTTP request.
func (c *Client) doSigned(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	sig := sign(params.Encode(), c.cfg.APISecret)
	params.Set("signature", sig)

	var (
		req *http.Request
		err error
	)
	encoded := params.Encode()
	switch method {
	case http.MethodGet, http.MethodDelete:
		// Binance expects signed params in the query string for GET/DELETE.
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+encoded, nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(encoded))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if c.weights != nil {
		c.weights.Observe(res.Header.Get("X-MBX-USED-WEIGHT-1M"))
	}

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("binance %s %s status %d: %s", req.Method, req.URL.Path, res.StatusCode, string(body))
	}
	return body, nil
}

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"` // Binance spells it this way
	Time          int64  `json:"time"`
}

func mapStatus(s string) common.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return common.StatusNew
	case "PARTIALLY_FILLED":
		return common.StatusPartial
	case "FILLED":
		return common.StatusFilled
	case "CANCELED":
		return common.StatusCanceled
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return common.StatusExpired
	case "REJECTED":
		return common.StatusRejected
	case "PENDING_CANCEL":
		return common.StatusPendingCancel
	default:
		return common.StatusUnknown
	}
}

func sign(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
