package yahoo

import (
	"context"
	"fmt"
	"time"

	"quoteticker/internal/httpx"
	"quoteticker/internal/provider"
)

type Config struct {
	Name   string
	Symbol string
	// URL defaults to the public quote page of Symbol.
	URL string
}

// Provider scrapes one symbol from the Yahoo Finance quote page.
type Provider struct {
	cfg    Config
	client *httpx.Client
	now    func() time.Time
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" { cfg.Name = "Yahoo" }
	if cfg.URL == "" { cfg.URL = QuoteURL(cfg.Symbol) }
	return &Provider{cfg: cfg, client: hc, now: time.Now}
}

// QuoteURL returns the quote page address for symbol.
func QuoteURL(symbol string) string {
	return fmt.Sprintf("https://finance.yahoo.com/quote/%s/", symbol)
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) URL() string { return p.cfg.URL }

// Fetch retrieves the page and extracts the quote. Only retrieval can fail;
// a page whose markup is not recognized still yields a default update.
func (p *Provider) Fetch(ctx context.Context) (provider.Update, error) {
	html, err := p.client.Get(ctx, p.cfg.URL)
	if err != nil {
		return provider.Update{}, err
	}
	u := Extract(html, p.cfg.Symbol)
	u.ReceivedAt = p.now().UTC()
	return u, nil
}

// Page returns the raw page text without extracting anything.
func (p *Provider) Page(ctx context.Context) (string, error) {
	return p.client.Get(ctx, p.cfg.URL)
}
