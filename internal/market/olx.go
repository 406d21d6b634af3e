package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ToolOLX is the trace identifier for the used-market scraper.
const ToolOLX = "OLX_Market_Scraper"

const (
	olxBaseURL = "https://www.olx.com.pk"

	// olxCategoryPath is OLX Pakistan's mobile-phones category.
	olxCategoryPath = "/mobile-phones_c1453"

	olxMaxListings = 5

	// olxItemDelay spaces out listing-page fetches against the live site.
	olxItemDelay = 500 * time.Millisecond
)

// OLXSource scrapes current used-phone listings from OLX Pakistan. The
// result is a JSON payload of active listings with prices, titles and
// locations.
type OLXSource struct {
	client    *resty.Client
	baseURL   string
	itemDelay time.Duration
}

func NewOLXSource() *OLXSource {
	return NewOLXSourceWithBaseURL(olxBaseURL, olxItemDelay)
}

// NewOLXSourceWithBaseURL creates a source with a custom base URL and delay
// between listing-page fetches (for testing, where zero delay is fine).
func NewOLXSourceWithBaseURL(baseURL string, itemDelay time.Duration) *OLXSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeaders(map[string]string{
			"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         baseURL,
		})
	return &OLXSource{client: client, baseURL: baseURL, itemDelay: itemDelay}
}

func (s *OLXSource) Name() string {
	return ToolOLX
}

type olxListing struct {
	Price    int    `json:"price"`
	Title    string `json:"title"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

type olxResult struct {
	Source     string       `json:"source"`
	Query      string       `json:"query"`
	TotalFound int          `json:"total_found"`
	Listings   []olxListing `json:"listings"`
	SearchURL  string       `json:"search_url"`
}

// Query searches the mobile-phones category and fetches details for the
// first few listings.
func (s *OLXSource) Query(ctx context.Context, brand, model, storage string) (string, error) {
	query := brand + " " + model
	if storage != "" {
		query += " " + storage
	}

	searchPath := fmt.Sprintf("%s/q-%s", olxCategoryPath, strings.ReplaceAll(query, " ", "-"))
	resp, err := s.client.R().SetContext(ctx).Get(searchPath)
	if err != nil {
		return "", fmt.Errorf("olx search failed: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("olx returned status %d", resp.StatusCode())
	}

	adIDs := extractAdIDs(string(resp.Body()))
	if len(adIDs) == 0 {
		return "", fmt.Errorf("no listings found on OLX for %q", query)
	}

	fetchIDs := adIDs
	if len(fetchIDs) > olxMaxListings {
		fetchIDs = fetchIDs[:olxMaxListings]
	}

	result := olxResult{
		Source:     "OLX Pakistan",
		Query:      query,
		TotalFound: len(adIDs),
		Listings:   s.fetchListings(ctx, fetchIDs),
		SearchURL:  s.baseURL + searchPath,
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode olx result: %w", err)
	}
	return string(payload), nil
}

var dataLayerPush = regexp.MustCompile(`(?s)window\['dataLayer'\]\.push\((.*?)\);`)

// extractAdIDs pulls listing IDs out of the search page's dataLayer
// JavaScript. IDs live in "ad_ids" plus overflow sets "ad_ids_set_2"..9.
func extractAdIDs(html string) []string {
	m := dataLayerPush.FindStringSubmatch(html)
	if m == nil {
		return nil
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil
	}

	var ids []string
	appendSet := func(key string) {
		raw, ok := data[key]
		if !ok {
			return
		}
		var set []string
		if err := json.Unmarshal(raw, &set); err == nil {
			ids = append(ids, set...)
		}
	}

	appendSet("ad_ids")
	for i := 2; i < 10; i++ {
		appendSet(fmt.Sprintf("ad_ids_set_%d", i))
	}
	return ids
}

// fetchListings loads individual listing pages. Failing pages are skipped;
// partial data is better than none here.
func (s *OLXSource) fetchListings(ctx context.Context, adIDs []string) []olxListing {
	listings := []olxListing{}
	for i, id := range adIDs {
		if i > 0 && s.itemDelay > 0 {
			select {
			case <-ctx.Done():
				return listings
			case <-time.After(s.itemDelay):
			}
		}

		itemPath := "/item/" + id
		resp, err := s.client.R().SetContext(ctx).Get(itemPath)
		if err != nil || !resp.IsSuccess() {
			continue
		}

		price, title, location, ok := extractListingData(resp.Body())
		if !ok || price <= 0 {
			continue
		}
		if title == "" {
			title = "Unknown"
		}
		if location == "" {
			location = "Pakistan"
		}
		listings = append(listings, olxListing{
			Price:    price,
			Title:    title,
			Location: location,
			URL:      s.baseURL + itemPath,
		})
	}
	return listings
}

// extractListingData reads price, title and location from a listing page,
// preferring JSON-LD structured data over meta tags.
func extractListingData(body []byte) (price int, title, location string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, "", "", false
	}

	jsonLD := doc.Find(`script[type="application/ld+json"]`).First()
	if jsonLD.Length() > 0 {
		var data struct {
			Name   string `json:"name"`
			Offers struct {
				Price json.Number `json:"price"`
			} `json:"offers"`
			Address struct {
				AddressLocality string `json:"addressLocality"`
			} `json:"address"`
		}
		if err := json.Unmarshal([]byte(jsonLD.Text()), &data); err == nil {
			if p, err := data.Offers.Price.Float64(); err == nil && p > 0 {
				return int(p), data.Name, data.Address.AddressLocality, true
			}
		}
	}

	priceMeta, _ := doc.Find(`meta[property="product:price:amount"]`).Attr("content")
	titleMeta, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if priceMeta != "" {
		var p float64
		if _, err := fmt.Sscanf(priceMeta, "%f", &p); err == nil && p > 0 {
			return int(p), titleMeta, "", true
		}
	}
	return 0, "", "", false
}
