package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"InventoryTracker/internal/domain"
	"InventoryTracker/internal/scanner"
)

// StockLocatorScanner crawls stock-locator result pages and extracts one
// snapshot row per listed vehicle from its detail page.
type StockLocatorScanner struct {
	client *http.Client
	logger *slog.Logger
}

// NewStockLocatorScanner wires an HTTP client; a nil client gets a
// 20-second timeout default.
func NewStockLocatorScanner(client *http.Client, logger *slog.Logger) *StockLocatorScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &StockLocatorScanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *StockLocatorScanner) Name() string {
	return "stocklocator"
}

// Scan walks each configured query, collects the listing links, and
// extracts vehicle data from every detail page up to the request limit.
func (s *StockLocatorScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Vehicle, error) {
	if len(req.Queries) == 0 {
		return nil, fmt.Errorf("no queries provided for site %s", req.SiteName)
	}

	var results []domain.Vehicle
	seen := map[int64]struct{}{}

	for _, query := range req.Queries {
		doc, err := s.fetchDocument(ctx, query.URL)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", query.Name, err)
		}

		links := extractListingLinks(doc, query.URL)
		s.debug("listing collected", "query", query.Name, "links", len(links))

		for _, link := range links {
			if req.Limit > 0 && len(results) >= req.Limit {
				return results, nil
			}

			detail, err := s.fetchDocument(ctx, link)
			if err != nil {
				return nil, fmt.Errorf("query %s: %w", query.Name, err)
			}

			vehicle, err := extractVehicle(detail, link)
			if err != nil {
				s.debug("skipping listing", "link", link, "reason", err)
				continue
			}
			if _, ok := seen[vehicle.ID]; ok {
				continue
			}
			seen[vehicle.ID] = struct{}{}
			results = append(results, vehicle)
		}
	}

	return results, nil
}

func (s *StockLocatorScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "InventoryTracker/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stock locator returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// extractListingLinks pulls the detail-page links off a results page,
// resolving relative hrefs against the query URL.
func extractListingLinks(doc *goquery.Document, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}

	var links []string
	seen := map[string]struct{}{}

	doc.Find("a.vehicle-card__link").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if baseURL != nil {
			if resolved, err := baseURL.Parse(href); err == nil {
				href = resolved.String()
			}
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})

	return links
}

// extractVehicle reads every tracked field off a detail page. Missing
// fields stay nil; only a listing without a usable vehicle id is
// rejected, since nothing can be keyed on it.
func extractVehicle(doc *goquery.Document, link string) (domain.Vehicle, error) {
	idText := doc.Find("div.vehicle-intro__vin").First().Text()
	id, err := parseVehicleID(idText)
	if err != nil {
		return domain.Vehicle{}, err
	}

	vehicle := domain.Vehicle{
		ID:        id,
		ModelName: strings.TrimSpace(doc.Find("h1#stock-locator__details-heading-1").First().Text()),
		Link:      link,
	}

	vehicle.Price = parsePrice(doc.Find("div.price strong").First().Text())
	vehicle.Kilometers = parseLeadingNumber(keyFactValue(doc, "Kilomètres"))
	vehicle.RegistrationDate = parseRegistrationDate(keyFactValue(doc, "Date d'immatriculation"))
	vehicle.PowerKW, vehicle.PowerPS = parseHorsePower(keyFactValue(doc, "Power Based on Degree of Electrification"))

	rangeCell := doc.Find(`div[data-technical-data-key="wltpPureElectricRangeCombinedKilometer"]`).First()
	if rangeCell.Length() > 0 {
		vehicle.RangeKM = parseLeadingNumber(rangeCell.Closest("div.technical-data_table").Find("div.headline-5 span").First().Text())
	}

	vehicle.Equipment = extractEquipment(doc)

	return vehicle, nil
}

func keyFactValue(doc *goquery.Document, title string) string {
	fact := doc.Find(fmt.Sprintf(`#stock-locator__key-facts-section div.key-fact[title=%q]`, title)).First()
	value := strings.TrimSpace(fact.Find("div.value-disclaimer div.value.caption").First().Text())
	if value == "" {
		value = strings.TrimSpace(fact.Find("div.value.caption").First().Text())
	}
	return value
}

// extractEquipment walks the accordion panels of every equipment
// section, mapping the panel header to the card titles beneath it.
func extractEquipment(doc *goquery.Document) map[string][]string {
	equipment := map[string][]string{}

	doc.Find("section.equipment-section-container neo-accordion-panel").Each(func(_ int, panel *goquery.Selection) {
		category := strings.TrimSpace(panel.Find(".content-header .header-label").First().Text())
		if category == "" {
			return
		}

		var items []string
		panel.Find("div.details-card div.headline-7").Each(func(_ int, card *goquery.Selection) {
			if name := strings.TrimSpace(card.Text()); name != "" {
				items = append(items, name)
			}
		})
		if len(items) == 0 {
			return
		}

		equipment[category] = append(equipment[category], items...)
	})

	if len(equipment) == 0 {
		return nil
	}
	return equipment
}

func (s *StockLocatorScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
