package steam

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// quotePriceRe matches the "<whole>,<fraction>" price format inside
// multibuy form inputs.
var quotePriceRe = regexp.MustCompile(`^(\d+),(\d+)`)

// parseSearchRows extracts listings from a search results HTML fragment.
// One broken row never aborts the page: missing appid parses as 0, a
// missing title as "Noname", a missing price as 0.
func parseSearchRows(html string) ([]Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	var listings []Listing
	doc.Find("a.search_result_row").Each(func(_ int, row *goquery.Selection) {
		var listing Listing

		if raw, ok := row.Attr("data-ds-appid"); ok {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				listing.AppID = id
			}
		}

		listing.StoreURL, _ = row.Attr("href")

		listing.Name = "Noname"
		if title := row.Find("span.title"); title.Length() > 0 {
			listing.Name = title.Text()
		}

		if raw, ok := row.Find("div.search_price_discount_combined").Attr("data-price-final"); ok {
			if price, err := strconv.ParseInt(raw, 10, 64); err == nil {
				listing.Price = price
			}
		}

		listings = append(listings, listing)
	})

	return listings, nil
}

// parseCardNames pulls the series-1 card titles off an exchange game page.
// No series-1 block means the game has no cards; that is a nil result, not
// an error.
func parseCardNames(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing card page: %w", err)
	}

	series := doc.Find("#series-1")
	if series.Length() == 0 {
		return nil, nil
	}

	var names []string
	series.Find(".card-name").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Text())
		if name != "" {
			names = append(names, name)
		}
	})

	return names, nil
}

// parseMultiBuyPrices reads prices out of a multibuy quote page. The page
// encodes one price per requested item as a form input valued
// "<whole>,<fraction>", in request order; both parts are minor-unit
// integers (1,50 -> 150).
func parseMultiBuyPrices(body []byte) ([]int64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing multibuy quote: %w", err)
	}

	var prices []int64
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		value, ok := input.Attr("value")
		if !ok {
			return
		}
		match := quotePriceRe.FindStringSubmatch(value)
		if match == nil {
			return
		}

		whole, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return
		}
		frac, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			return
		}
		prices = append(prices, whole*100+frac)
	})

	return prices, nil
}
