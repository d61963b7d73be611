package venue

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a numeric field that venues send either as a JSON string or a
// bare number. Missing values ("-", "", null) decode to zero.
type Number string

// UnmarshalJSON implements json.Unmarshaler for Number.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(strings.TrimSpace(s))
		return nil
	}
	*n = Number(data)
	return nil
}

// Decimal parses the value. Unparsable or absent values are zero.
func (n Number) Decimal() decimal.Decimal {
	s := string(n)
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NobitexStatsResponse is the body of GET /market/stats.
type NobitexStatsResponse struct {
	Status string                       `json:"status"`
	Stats  map[string]NobitexMarketStat `json:"stats"`
}

// NobitexMarketStat is one market of the stats snapshot. bestSell is the
// lowest ask and bestBuy the highest bid.
type NobitexMarketStat struct {
	IsClosed  bool   `json:"isClosed"`
	BestSell  Number `json:"bestSell"`
	BestBuy   Number `json:"bestBuy"`
	VolumeSrc Number `json:"volumeSrc"`
	VolumeDst Number `json:"volumeDst"`
	Latest    Number `json:"latest"`
	DayLow    Number `json:"dayLow"`
	DayHigh   Number `json:"dayHigh"`
	DayChange Number `json:"dayChange"`
}

// WallexMarketsResponse is the body of GET /v1/markets.
type WallexMarketsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  struct {
		Symbols map[string]WallexMarket `json:"symbols"`
	} `json:"result"`
}

// WallexMarket is one market listing. IsTradable is only sent by some API
// versions; nil means tradable.
type WallexMarket struct {
	Symbol     string            `json:"symbol"`
	BaseAsset  string            `json:"baseAsset"`
	QuoteAsset string            `json:"quoteAsset"`
	IsTradable *bool             `json:"isTradable,omitempty"`
	Stats      WallexMarketStats `json:"stats"`
}

// WallexMarketStats holds the 24h statistics of a market.
type WallexMarketStats struct {
	BidPrice       Number `json:"bidPrice"`
	AskPrice       Number `json:"askPrice"`
	LastPrice      Number `json:"lastPrice"`
	Volume24h      Number `json:"24h_volume"`
	QuoteVolume24h Number `json:"24h_quoteVolume"`
	Change24h      Number `json:"24h_ch"`
}

// tradable reports whether the market should be listed in the catalog.
func (m WallexMarket) tradable() bool {
	if m.IsTradable != nil && !*m.IsTradable {
		return false
	}
	return m.Stats.BidPrice.Decimal().IsPositive() || m.Stats.AskPrice.Decimal().IsPositive()
}
