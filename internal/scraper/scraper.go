package scraper

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealscout/helpers"
	"dealscout/internal/listing"
	"dealscout/logger"
	pkgerr "dealscout/pkg/errors"
	"dealscout/services/cache"
)

// Selectors for the classifieds site. The search page exposes listing
// cards as h3 > a[data-testid=rich-card-link]; detail pages carry the
// price and description behind stable data-testid attributes.
const (
	searchLinkSelector  = `h3 a[data-testid="rich-card-link"]`
	titleSelector       = "h1"
	priceSelector       = `p[data-testid="vip-price"]`
	descriptionSelector = `div[data-testid="vip-description-wrapper"]`
	ldJSONSelector      = `script[type="application/ld+json"]`
)

// Scraper fetches the search results page and individual listing pages.
type Scraper struct {
	SearchURL string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration

	log *logger.Logger
}

// NewScraper creates a scraper for one search URL. cacheSvc may be nil, in
// which case rate-limit blocking is disabled.
func NewScraper(searchURL string, cacheSvc cache.CacheService, blockTime time.Duration) *Scraper {
	return &Scraper{
		SearchURL: searchURL,
		CacheKey:  "scraper_rate_limited",
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
		log:       logger.ForScraper(),
	}
}

// fetchWithCache fetches a URL with rate-limit blocking: after the site
// answers 429/430 the key is cached and no request is sent until it expires.
func (s *Scraper) fetchWithCache(target string) (io.Reader, error) {
	if s.CacheSvc != nil && s.CacheKey != "" {
		if _, err := s.CacheSvc.Get(s.CacheKey); err == nil {
			return nil, pkgerr.NewRateLimit("scraper", s.BlockTime)
		}
	}

	body, err := helpers.FetchWithBrowserHeaders(target)
	if err != nil {
		if s.CacheSvc != nil && s.CacheKey != "" && strings.HasPrefix(err.Error(), "rate limited") {
			s.CacheSvc.Set(s.CacheKey, []byte(strconv.Itoa(int(s.BlockTime/time.Second))), s.BlockTime)
		}
		return nil, pkgerr.NewNetwork("scraper", fmt.Sprintf("fetch %s", target), err)
	}

	return body, nil
}

// FindNewListings fetches the search page, extracts detail-page links and
// returns only those whose trailing-segment identifier is not in seen.
// Returned identifiers are marked seen as a side effect, so each listing is
// delivered at most once per process run.
func (s *Scraper) FindNewListings(seen *SeenSet) ([]string, error) {
	body, err := s.fetchWithCache(s.SearchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, pkgerr.NewParsing("scraper", "search page", err)
	}

	base, err := url.Parse(s.SearchURL)
	if err != nil {
		return nil, pkgerr.NewParsing("scraper", "search url", err)
	}

	var newListings []string
	doc.Find(searchLinkSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}

		resolved := resolveURL(base, href)

		id, err := helpers.LastPathSegment(resolved)
		if err != nil {
			s.log.Debug().Str("href", href).Msg("Skipping link without identifier")
			return
		}

		if seen.Seen(id) {
			return
		}
		seen.Add(id)
		newListings = append(newListings, resolved)
	})

	s.log.Debug().
		Int("new", len(newListings)).
		Int("seen_total", seen.Len()).
		Msg("Scanned search page")

	return newListings, nil
}

// FetchListing fetches and parses one detail page. Missing fields resolve
// to listing.FieldUnavailable or an unknown price instead of failing the
// whole listing; only network and document-level parse failures return an
// error.
func (s *Scraper) FetchListing(adURL string) (listing.Listing, error) {
	body, err := s.fetchWithCache(adURL)
	if err != nil {
		return listing.Listing{}, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return listing.Listing{}, pkgerr.NewParsing("scraper", "detail page", err)
	}

	l := listing.Listing{
		Title:       listing.FieldUnavailable,
		Price:       listing.UnknownPrice(),
		Description: listing.FieldUnavailable,
		Location:    listing.FieldUnavailable,
		URL:         adURL,
	}

	if title := strings.TrimSpace(doc.Find(titleSelector).First().Text()); title != "" {
		l.Title = title
	}

	if raw := strings.TrimSpace(doc.Find(priceSelector).First().Text()); raw != "" {
		l.Price = ParsePrice(raw)
	}

	if desc := strings.TrimSpace(doc.Find(descriptionSelector).First().Text()); desc != "" {
		l.Description = desc
	}

	if loc := extractLocation(doc); loc != "" {
		l.Location = loc
	}

	return l, nil
}

// ParsePrice strips currency formatting and parses the amount. Anything
// non-numeric ("Please Contact", "Swap/Trade", "Free") yields an unknown
// price, which downstream forces out of price-based scoring.
func ParsePrice(raw string) listing.Price {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return listing.UnknownPrice()
	}
	return listing.KnownPrice(amount)
}

// ldOffer mirrors the slice of the page's ld+json block that carries the
// seller address.
type ldOffer struct {
	Offers struct {
		AvailableAtOrFrom struct {
			Address struct {
				StreetAddress string `json:"streetAddress"`
			} `json:"address"`
		} `json:"availableAtOrFrom"`
	} `json:"offers"`
}

// extractLocation pulls the street address out of the first ld+json block
// that has one. Malformed JSON is ignored.
func extractLocation(doc *goquery.Document) string {
	var location string
	doc.Find(ldJSONSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data ldOffer
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		if addr := data.Offers.AvailableAtOrFrom.Address.StreetAddress; addr != "" {
			location = addr
			return false
		}
		return true
	})
	return location
}

// resolveURL resolves a possibly relative href against the search page URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
