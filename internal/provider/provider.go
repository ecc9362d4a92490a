package provider

import (
	"context"
	"time"
)

// PriceUnknown is shown when the page carried no price node.
const PriceUnknown = "??"

// Update is one quote as shown on the source page.
// Price and Delta stay strings; the page's own formatting is authoritative.
type Update struct {
	Symbol       string    `json:"symbol"`
	Price        string    `json:"price"`
	Delta        string    `json:"delta"`
	MarketNotice *string   `json:"market_notice,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// HasNotice reports whether the page showed a supplemental notice.
func (u Update) HasNotice() bool { return u.MarketNotice != nil }

// Notice returns the market notice or "" when absent.
func (u Update) Notice() string {
	if u.MarketNotice == nil {
		return ""
	}
	return *u.MarketNotice
}

// Empty returns the update produced when nothing could be extracted.
func Empty(symbol string) Update {
	return Update{Symbol: symbol, Price: PriceUnknown}
}

// Provider performs one quote cycle's retrieval.
//
//go:generate mockgen -package=scheduler_test -destination=../scheduler/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (Update, error)
}
