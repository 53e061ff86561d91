package connectors

import jsoniter "github.com/json-iterator/go"

// APIResponse is the Bybit v5 envelope shared by every endpoint.
type APIResponse struct {
	RetCode int                 `json:"retCode"`
	RetMsg  string              `json:"retMsg"`
	Result  jsoniter.RawMessage `json:"result"`
	Time    int64               `json:"time"`
}

type listResult[T any] struct {
	Category       string `json:"category"`
	List           []T    `json:"list"`
	NextPageCursor string `json:"nextPageCursor"`
}

// PositionInfo is one entry of /v5/position/list. Numbers arrive as strings.
type PositionInfo struct {
	Symbol         string `json:"symbol"`
	Side           string `json:"side"` // Buy | Sell | "" for an empty one-way slot
	Size           string `json:"size"`
	PositionValue  string `json:"positionValue"`
	AvgPrice       string `json:"avgPrice"`
	MarkPrice      string `json:"markPrice"`
	LiqPrice       string `json:"liqPrice"`
	PositionIM     string `json:"positionIM"`
	PositionMM     string `json:"positionMM"`
	UnrealisedPnl  string `json:"unrealisedPnl"`
	CumRealisedPnl string `json:"cumRealisedPnl"`
	TakeProfit     string `json:"takeProfit"`
	StopLoss       string `json:"stopLoss"`
	Leverage       string `json:"leverage"`
	TradeMode      int    `json:"tradeMode"` // 0 cross, 1 isolated
	PositionIdx    int    `json:"positionIdx"`
	UpdatedTime    string `json:"updatedTime"`
}

// OrderInfo is one entry of /v5/order/realtime and /v5/order/history.
type OrderInfo struct {
	OrderID      string `json:"orderId"`
	OrderLinkID  string `json:"orderLinkId"`
	Symbol       string `json:"symbol"`
	OrderType    string `json:"orderType"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	CumExecQty   string `json:"cumExecQty"`
	TriggerPrice string `json:"triggerPrice"`
	ReduceOnly   bool   `json:"reduceOnly"`
	OrderStatus  string `json:"orderStatus"`
	CreatedTime  string `json:"createdTime"`
	UpdatedTime  string `json:"updatedTime"`
}

// ClosedPnLInfo is one realized-close event of /v5/position/closed-pnl.
// Side is the side of the closing order.
type ClosedPnLInfo struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	Side          string `json:"side"`
	Qty           string `json:"qty"`
	OrderPrice    string `json:"orderPrice"`
	OrderType     string `json:"orderType"`
	ClosedSize    string `json:"closedSize"`
	CumEntryValue string `json:"cumEntryValue"`
	AvgEntryPrice string `json:"avgEntryPrice"`
	CumExitValue  string `json:"cumExitValue"`
	AvgExitPrice  string `json:"avgExitPrice"`
	ClosedPnl     string `json:"closedPnl"`
	Leverage      string `json:"leverage"`
	CreatedTime   string `json:"createdTime"`
	UpdatedTime   string `json:"updatedTime"`
}

// PositionListResponse carries the venue return code next to the positions so
// callers can treat a non-zero code as a no-op.
type PositionListResponse struct {
	RetCode int
	RetMsg  string
	List    []PositionInfo
}

type OrderListResponse struct {
	RetCode int
	RetMsg  string
	List    []OrderInfo
}

type ClosedPnLListResponse struct {
	RetCode int
	RetMsg  string
	List    []ClosedPnLInfo
}

// OK reports whether the venue accepted the call.
func (r *PositionListResponse) OK() bool { return r != nil && r.RetCode == RetCodeOK }

func (r *OrderListResponse) OK() bool { return r != nil && r.RetCode == RetCodeOK }

func (r *ClosedPnLListResponse) OK() bool { return r != nil && r.RetCode == RetCodeOK }
