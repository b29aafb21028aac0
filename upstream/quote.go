package upstream

import (
	"context"
	"fmt"

	"founder-dashboard/domain"
)

const DefaultQuoteURL = "https://api.quotable.io"

// QuoteClient fetches random quotes.
type QuoteClient struct {
	jsonClient
}

func NewQuoteClient(opts Options) *QuoteClient {
	return &QuoteClient{jsonClient: newJSONClient("quote", DefaultQuoteURL, opts)}
}

type quoteResponse struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

func (c *QuoteClient) Random(ctx context.Context) (domain.Quote, error) {
	var body quoteResponse
	if err := c.getJSON(ctx, c.baseURL+"/random", &body); err != nil {
		return domain.Quote{}, err
	}
	if body.Content == "" {
		return domain.Quote{}, fmt.Errorf("quote: response has no content")
	}
	return domain.Quote{Text: body.Content, Author: body.Author}, nil
}
