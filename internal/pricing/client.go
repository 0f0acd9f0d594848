package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"dealscout/internal/listing"
	"dealscout/logger"
	pkgerr "dealscout/pkg/errors"
)

const (
	// searchLimit caps how many reference listings one lookup returns.
	searchLimit = 20
	// componentsCategoryID restricts the search to computer components.
	componentsCategoryID = "175673"
	// conditionFilter restricts results to new and used items.
	conditionFilter = "conditions:{NEW|USED}"

	searchPath = "/buy/browse/v1/item_summary/search"
)

// TokenProvider supplies a valid bearer token per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client queries the marketplace search API for comparable listings.
type Client struct {
	baseURL     string
	marketplace string
	tokens      TokenProvider
	client      *http.Client
	log         *logger.Logger
}

// NewClient creates a pricing client against the given API base URL.
func NewClient(baseURL, marketplace string, tokens TokenProvider) *Client {
	return &Client{
		baseURL:     baseURL,
		marketplace: marketplace,
		tokens:      tokens,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         logger.ForPricing(),
	}
}

type money struct {
	Value string `json:"value"`
}

type itemSummary struct {
	Title      string `json:"title"`
	Price      money  `json:"price"`
	Condition  string `json:"condition"`
	ItemWebURL string `json:"itemWebUrl"`
	Shipping   []struct {
		ShippingCost money `json:"shippingCost"`
	} `json:"shippingOptions"`
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
}

// SearchReferenceListings runs an item search for the query and condenses
// the results. Each result's price is the item price plus the first
// shipping option's cost; missing shipping defaults to 0, while an item
// without a parseable price is dropped rather than crashing the
// aggregation.
func (c *Client) SearchReferenceListings(ctx context.Context, query string) ([]listing.ReferenceListing, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("auto_correct", "KEYWORD")
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("category_ids", componentsCategoryID)
	params.Set("filter", conditionFilter)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, pkgerr.NewPricing("pricing", "create search request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplace)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pkgerr.NewNetwork("pricing", "item search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerr.NewPricing("pricing",
			fmt.Sprintf("item search unexpected status code: %d", resp.StatusCode), nil)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerr.NewParsing("pricing", "item search response", err)
	}

	condensed := make([]listing.ReferenceListing, 0, len(out.ItemSummaries))
	for _, item := range out.ItemSummaries {
		price, err := strconv.ParseFloat(item.Price.Value, 64)
		if err != nil {
			c.log.Debug().Str("title", item.Title).Msg("Dropping result without a price")
			continue
		}

		shipping := 0.0
		if len(item.Shipping) > 0 {
			if cost, err := strconv.ParseFloat(item.Shipping[0].ShippingCost.Value, 64); err == nil {
				shipping = cost
			}
		}

		condensed = append(condensed, listing.ReferenceListing{
			Title:     orUnavailable(item.Title),
			Price:     price + shipping,
			Condition: orUnavailable(item.Condition),
			URL:       orUnavailable(item.ItemWebURL),
		})
	}

	c.log.Debug().
		Str("query", query).
		Int("results", len(condensed)).
		Msg("Fetched reference listings")

	return condensed, nil
}

func orUnavailable(s string) string {
	if s == "" {
		return listing.FieldUnavailable
	}
	return s
}
