package yahoo

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"quoteticker/internal/provider"
)

// Layout of the quote page. Streaming price nodes look like
//
//	<fin-streamer data-symbol="CART" data-field="regularMarketPrice">31.02</fin-streamer>
const (
	streamerTag    = "fin-streamer"
	symbolAttr     = "data-symbol"
	fieldAttr      = "data-field"
	fieldPrice     = "regularMarketPrice"
	fieldChange    = "regularMarketChange"
	marketNoticeID = "quote-market-notice"
)

// Extract pulls the quote for symbol out of a quote page.
// It never fails: unrecognized markup yields provider.Empty(symbol).
// A matched node with no text yields "", not the placeholder.
func Extract(html, symbol string) provider.Update {
	u := provider.Empty(symbol)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return u
	}

	sel := streamerTag + `[` + symbolAttr + `="` + symbol + `"]`
	doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
		field, ok := s.Attr(fieldAttr)
		if !ok {
			return
		}
		switch field {
		case fieldPrice:
			u.Price = normalize(s.Text())
		case fieldChange:
			u.Delta = normalize(s.Text())
		}
	})

	if notice := doc.Find("#" + marketNoticeID).First(); notice.Length() > 0 {
		text := normalize(notice.Text())
		u.MarketNotice = &text
	}
	return u
}

// normalize trims and collapses internal whitespace runs to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
