package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const whatMobileDevicePage = `<html><head>
<script type="application/ld+json">
{"@type": "Product", "name": "Samsung Galaxy A06", "offers": {"price": 27000, "priceCurrency": "PKR"}}
</script>
</head><body>
<span class="PriceFont">Rs. 27,000</span>
<table class="specification">
<tr><td>Release Date</td><td>2024, August</td></tr>
<tr><td>Weight</td><td>189 g</td></tr>
</table>
</body></html>`

func TestWhatMobileQueryDirectSlug(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Samsung_Galaxy-A06", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, whatMobileDevicePage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	source := NewWhatMobileSourceWithBaseURL(srv.URL)
	out, err := source.Query(context.Background(), "Samsung", "Galaxy A06", "128GB")
	require.NoError(t, err)

	assert.Contains(t, out, "Samsung Galaxy A06")
	assert.Contains(t, out, "Retail Price: PKR 27000")
	assert.Contains(t, out, "Launch Date: 2024-Aug")
	assert.Contains(t, out, "Source: "+srv.URL+"/Samsung_Galaxy-A06")
}

func TestWhatMobileQuerySearchFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Samsung Galaxy A06 2024", r.URL.Query().Get("search"))
		fmt.Fprint(w, `<html><body>
			<a href="/some-unrelated-phone">Other</a>
			<a href="/Samsung-Galaxy-A06-2024-Price">Samsung Galaxy A06 2024</a>
		</body></html>`)
	})
	mux.HandleFunc("/Samsung-Galaxy-A06-2024-Price", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, whatMobileDevicePage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	source := NewWhatMobileSourceWithBaseURL(srv.URL)
	out, err := source.Query(context.Background(), "Samsung", "Galaxy A06 2024", "")
	require.NoError(t, err)

	assert.Contains(t, out, "Retail Price: PKR 27000")
	assert.Contains(t, out, "Source: "+srv.URL+"/Samsung-Galaxy-A06-2024-Price")
}

func TestWhatMobileQueryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	source := NewWhatMobileSourceWithBaseURL(srv.URL)
	_, err := source.Query(context.Background(), "Nokia", "3310", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found on WhatMobile")
}

func TestWhatMobileQueryPriceFromPageElement(t *testing.T) {
	// No JSON-LD on the page; the span fallback carries the price.
	page := `<html><body><span class="PriceFont">Rs. 112,999</span></body></html>`
	mux := http.NewServeMux()
	mux.HandleFunc("/Apple_iPhone_15", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	source := NewWhatMobileSourceWithBaseURL(srv.URL)
	out, err := source.Query(context.Background(), "Apple", "iPhone 15", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Retail Price: PKR 112999")
}
