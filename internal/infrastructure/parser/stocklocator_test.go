package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"InventoryTracker/internal/scanner"
)

func detailPage(id string) string {
	return fmt.Sprintf(`
	<html><body>
	  <h1 id="stock-locator__details-heading-1">BMW i4 eDrive40</h1>
	  <div class="vehicle-intro__vin">CAR-ID %s</div>
	  <div class="price"><strong>59 950,00 €</strong></div>
	  <div id="stock-locator__key-facts-section">
	    <div class="key-fact" title="Kilomètres"><div class="value caption">9 500 km</div></div>
	    <div class="key-fact" title="Date d'immatriculation"><div class="value caption">août 2025</div></div>
	    <div class="key-fact" title="Power Based on Degree of Electrification">
	      <div class="value-disclaimer"><div class="value caption">250 kW (340 ch)</div></div>
	    </div>
	  </div>
	  <div class="technical-data_table">
	    <div data-technical-data-key="wltpPureElectricRangeCombinedKilometer"></div>
	    <div class="headline-5"><span>475 km</span></div>
	  </div>
	  <section class="equipment-section-container">
	    <neo-accordion-panel>
	      <div class="content-header"><span class="header-label">Confort</span></div>
	      <div class="details-card"><div class="headline-7">Sièges chauffants</div></div>
	      <div class="details-card"><div class="headline-7">Climatisation</div></div>
	    </neo-accordion-panel>
	  </section>
	</body></html>`, id)
}

func TestExtractVehicle(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detailPage("123456")))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	vehicle, err := extractVehicle(doc, "https://example.test/detail/123456")
	if err != nil {
		t.Fatalf("extractVehicle error: %v", err)
	}

	if vehicle.ID != 123456 {
		t.Fatalf("unexpected id: %d", vehicle.ID)
	}
	if vehicle.ModelName != "BMW i4 eDrive40" {
		t.Fatalf("unexpected model: %q", vehicle.ModelName)
	}
	if vehicle.Price == nil || *vehicle.Price != 59950 {
		t.Fatalf("unexpected price: %v", vehicle.Price)
	}
	if vehicle.Kilometers == nil || *vehicle.Kilometers != 9500 {
		t.Fatalf("unexpected kilometers: %v", vehicle.Kilometers)
	}
	if vehicle.RegistrationDate != "2025-08" {
		t.Fatalf("unexpected registration date: %q", vehicle.RegistrationDate)
	}
	if vehicle.PowerKW == nil || *vehicle.PowerKW != 250 {
		t.Fatalf("unexpected kw: %v", vehicle.PowerKW)
	}
	if vehicle.PowerPS == nil || *vehicle.PowerPS != 340 {
		t.Fatalf("unexpected ps: %v", vehicle.PowerPS)
	}
	if vehicle.RangeKM == nil || *vehicle.RangeKM != 475 {
		t.Fatalf("unexpected range: %v", vehicle.RangeKM)
	}
	if len(vehicle.Equipment["Confort"]) != 2 {
		t.Fatalf("unexpected equipment: %v", vehicle.Equipment)
	}
}

func TestExtractVehicleRejectsMissingID(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><h1>empty</h1></body></html>"))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	if _, err := extractVehicle(doc, "https://example.test/x"); err == nil {
		t.Fatal("expected error for a listing without an id")
	}
}

func TestScanWalksListingAndDedupes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `
		<html><body>
		  <a class="vehicle-card__link" href="/detail/1">one</a>
		  <a class="vehicle-card__link" href="/detail/2">two</a>
		  <a class="vehicle-card__link" href="/detail/1">one again</a>
		  <a class="vehicle-card__link" href="/detail/broken">broken</a>
		</body></html>`)
	})
	mux.HandleFunc("/detail/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("111"))
	})
	mux.HandleFunc("/detail/2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("222"))
	})
	mux.HandleFunc("/detail/broken", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>no id here</body></html>")
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewStockLocatorScanner(server.Client(), nil)
	vehicles, err := s.Scan(context.Background(), scanner.Request{
		SiteName: "test",
		Queries:  []scanner.Query{{Name: "i4", URL: server.URL + "/results"}},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}
	if vehicles[0].ID != 111 || vehicles[1].ID != 222 {
		t.Fatalf("unexpected ids: %d, %d", vehicles[0].ID, vehicles[1].ID)
	}
}

func TestScanHonorsLimit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `
		<html><body>
		  <a class="vehicle-card__link" href="/detail/1">one</a>
		  <a class="vehicle-card__link" href="/detail/2">two</a>
		</body></html>`)
	})
	mux.HandleFunc("/detail/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("111"))
	})
	mux.HandleFunc("/detail/2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, detailPage("222"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	s := NewStockLocatorScanner(server.Client(), nil)
	vehicles, err := s.Scan(context.Background(), scanner.Request{
		SiteName: "test",
		Limit:    1,
		Queries:  []scanner.Query{{Name: "i4", URL: server.URL + "/results"}},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if len(vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(vehicles))
	}
}
