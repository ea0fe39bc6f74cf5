package domain

type OrderAction string

const (
	ActionBuy  OrderAction = "buy"
	ActionSell OrderAction = "sell"
)

type OrderType string

const (
	OrderMarket OrderType = "market"
	OrderLimit  OrderType = "limit"
)

// DefaultDeviation is the slippage allowance, in points, sent with every order.
const DefaultDeviation = 20

// OrderRequest is the body of POST /trade. Market orders ignore Price.
type OrderRequest struct {
	Symbol    string      `json:"symbol"`
	Action    OrderAction `json:"action"`
	Volume    float64     `json:"volume"`
	Price     float64     `json:"price"`
	SL        float64     `json:"sl"`
	TP        float64     `json:"tp"`
	OrderType OrderType   `json:"order_type"`
	Deviation int         `json:"deviation"`
}

// OrderResult is the venue acknowledgement of a submitted order.
type OrderResult struct {
	Retcode int     `json:"retcode"`
	Order   int64   `json:"order"`
	Deal    int64   `json:"deal"`
	Volume  float64 `json:"volume"`
	Price   float64 `json:"price"`
	Comment string  `json:"comment"`
}
