package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func listingFixture(id string) listingItem {
	return listingItem{
		CarID:            id,
		ModelName:        "i4 eDrive40",
		Price:            "48 900,00 €",
		Kilometers:       "21 000 km",
		RegistrationDate: "juin 2023",
		Power:            "250 kW (340 PS)",
		BatteryRange:     "480 km",
		Link:             "https://example.test/vehicle/" + id,
		Equipment: []struct {
			Category string `json:"category"`
			Name     string `json:"name"`
		}{
			{Category: "Comfort", Name: "Heated seats"},
		},
	}
}

func TestInventoryClient_FetchSnapshot(t *testing.T) {
	pages := map[string]listingPage{
		"1": {Total: 3, Page: 1, Size: 2, Items: []listingItem{listingFixture("101"), listingFixture("102")}},
		"2": {Total: 3, Page: 2, Size: 2, Items: []listingItem{listingFixture("103")}},
	}

	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/listings" {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("page")
		requested = append(requested, page)
		if err := json.NewEncoder(w).Encode(pages[page]); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}))
	defer srv.Close()

	client := NewInventoryClient(srv.URL)
	client.pageSize = 2

	snaps, err := client.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}

	if len(snaps) != 3 {
		t.Fatalf("snapshots = %d, want 3 across pages", len(snaps))
	}
	if len(requested) != 2 {
		t.Errorf("pages requested = %v, want exactly 2", requested)
	}

	s := snaps[0]
	if s.VehicleID != 101 {
		t.Errorf("vehicle id = %d, want 101", s.VehicleID)
	}
	if s.Price.String() != "48900" {
		t.Errorf("price = %s, want 48900", s.Price)
	}
	if s.Kilometers != 21000 {
		t.Errorf("kilometers = %d, want 21000", s.Kilometers)
	}
	if s.PowerKW == nil || *s.PowerKW != 250 || s.PowerPS == nil || *s.PowerPS != 340 {
		t.Errorf("power = %v/%v, want 250/340", s.PowerKW, s.PowerPS)
	}
	if s.RegistrationDate == nil || s.RegistrationDate.Month() != 6 {
		t.Errorf("registration date = %v, want June 2023", s.RegistrationDate)
	}
	if len(s.Equipment) != 1 || s.Equipment[0].Name != "Heated seats" {
		t.Errorf("equipment = %v", s.Equipment)
	}
}

func TestInventoryClient_DropsUnparseableListings(t *testing.T) {
	broken := listingFixture("bad-id")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := listingPage{Total: 2, Page: 1, Size: 100, Items: []listingItem{broken, listingFixture("102")}}
		if err := json.NewEncoder(w).Encode(page); err != nil {
			t.Errorf("encode page: %v", err)
		}
	}))
	defer srv.Close()

	snaps, err := NewInventoryClient(srv.URL).FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if len(snaps) != 1 || snaps[0].VehicleID != 102 {
		t.Errorf("snapshots = %+v, want only the parseable listing", snaps)
	}
}

func TestInventoryClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewInventoryClient(srv.URL).FetchSnapshot(context.Background())
	if err == nil {
		t.Fatalf("want error on non-200 response")
	}
}

func TestStubSource(t *testing.T) {
	stub := &StubSource{Err: fmt.Errorf("boom")}
	if _, err := stub.FetchSnapshot(context.Background()); err == nil {
		t.Errorf("stub error not propagated")
	}
}
