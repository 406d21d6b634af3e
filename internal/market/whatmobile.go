package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ToolWhatMobile is the trace identifier for the retail-price source.
const ToolWhatMobile = "WhatMobile_Pakistan_Info"

const whatMobileBaseURL = "https://www.whatmobile.com.pk"

// WhatMobileSource fetches Pakistani retail prices and specs from
// whatmobile.com.pk. It is the primary source for local market pricing.
type WhatMobileSource struct {
	client  *resty.Client
	baseURL string
}

func NewWhatMobileSource() *WhatMobileSource {
	return NewWhatMobileSourceWithBaseURL(whatMobileBaseURL)
}

// NewWhatMobileSourceWithBaseURL creates a source with a custom base URL
// (for testing).
func NewWhatMobileSourceWithBaseURL(baseURL string) *WhatMobileSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	return &WhatMobileSource{client: client, baseURL: baseURL}
}

func (s *WhatMobileSource) Name() string {
	return ToolWhatMobile
}

// Query fetches the device page and extracts the retail price and launch
// date. The page is tried by direct slug first, then via site search.
func (s *WhatMobileSource) Query(ctx context.Context, brand, model, storage string) (string, error) {
	doc, pageURL, err := s.fetchDevicePage(ctx, brand, model)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", brand, model)

	if price, ok := extractPrice(doc); ok {
		fmt.Fprintf(&b, "Retail Price: PKR %d\n", price)
	}
	if launch, ok := extractLaunchDate(doc); ok {
		fmt.Fprintf(&b, "Launch Date: %s\n", launch)
	}

	fmt.Fprintf(&b, "\nSource: %s\n", pageURL)
	b.WriteString("Use this retail price for Pakistani market calculations.")
	return b.String(), nil
}

// fetchDevicePage resolves the device page, following the site's slug
// convention (spaces become underscores, "Galaxy " becomes "Galaxy-").
func (s *WhatMobileSource) fetchDevicePage(ctx context.Context, brand, model string) (*goquery.Document, string, error) {
	slug := fmt.Sprintf("%s_%s", brand, strings.ReplaceAll(strings.ReplaceAll(model, "Galaxy ", "Galaxy-"), " ", "_"))

	resp, err := s.client.R().SetContext(ctx).Get("/" + slug)
	if err != nil {
		return nil, "", fmt.Errorf("whatmobile request failed: %w", err)
	}
	if resp.IsSuccess() {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse whatmobile page: %w", err)
		}
		return doc, s.baseURL + "/" + slug, nil
	}

	// Slug miss: fall back to site search and follow the first matching link.
	resp, err = s.client.R().
		SetContext(ctx).
		SetQueryParam("search", brand+" "+model).
		Get("/search")
	if err != nil {
		return nil, "", fmt.Errorf("whatmobile search failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("phone not found on WhatMobile: %s %s", brand, model)
	}

	searchDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse whatmobile search page: %w", err)
	}

	linkPattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(brand) + ".*" + regexp.QuoteMeta(strings.ReplaceAll(model, " ", "-")))
	if err != nil {
		return nil, "", err
	}
	href := ""
	searchDoc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		h, _ := sel.Attr("href")
		if linkPattern.MatchString(h) {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return nil, "", fmt.Errorf("phone not found on WhatMobile: %s %s", brand, model)
	}

	resp, err = s.client.R().SetContext(ctx).Get(href)
	if err != nil || !resp.IsSuccess() {
		return nil, "", fmt.Errorf("phone not found on WhatMobile: %s %s", brand, model)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse whatmobile page: %w", err)
	}
	return doc, s.baseURL + href, nil
}

var priceDigits = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)`)

// extractPrice prefers the JSON-LD product schema and falls back to the
// page's price elements.
func extractPrice(doc *goquery.Document) (int, bool) {
	price := 0
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data struct {
			Offers struct {
				Price json.Number `json:"price"`
			} `json:"offers"`
		}
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}
		if p, err := data.Offers.Price.Int64(); err == nil && p > 0 {
			price = int(p)
			return false
		}
		return true
	})
	if price > 0 {
		return price, true
	}

	text := doc.Find("span.PriceFont").First().Text()
	if text == "" {
		text = doc.Find("div.price").First().Text()
	}
	if m := priceDigits.FindString(text); m != "" {
		if p, err := strconv.Atoi(strings.ReplaceAll(m, ",", "")); err == nil && p > 0 {
			return p, true
		}
	}
	return 0, false
}

var launchYear = regexp.MustCompile(`(\d{4})[,\s]*(\w+)?`)

// extractLaunchDate scans the specification table for a release/launch row.
func extractLaunchDate(doc *goquery.Document) (string, bool) {
	launch := ""
	doc.Find("table.specification tr, div.specifications div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		lower := strings.ToLower(text)
		if !strings.Contains(lower, "release") && !strings.Contains(lower, "launch") && !strings.Contains(lower, "announced") {
			return true
		}
		m := launchYear.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		month := "01"
		if m[2] != "" {
			month = m[2]
			if len(month) > 3 {
				month = month[:3]
			}
		}
		launch = fmt.Sprintf("%s-%s", m[1], month)
		return false
	})
	return launch, launch != ""
}
