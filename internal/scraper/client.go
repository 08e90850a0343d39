package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"lotwatch/internal/domain"
	"lotwatch/internal/parsing"
)

// listingItem is one vehicle as the inventory endpoint renders it. Numeric
// fields arrive as display strings in French locale.
type listingItem struct {
	CarID            string `json:"car_id"`
	ModelName        string `json:"model_name"`
	Price            string `json:"price"`
	Kilometers       string `json:"kilometers"`
	RegistrationDate string `json:"registration_date"`
	Power            string `json:"power"`
	BatteryRange     string `json:"battery_range"`
	Link             string `json:"link"`
	Equipment        []struct {
		Category string `json:"category"`
		Name     string `json:"name"`
	} `json:"equipment"`
}

type listingPage struct {
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
	Items []listingItem `json:"items"`
}

// InventoryClient fetches the full inventory listing over HTTPS, following
// pagination until exhaustion.
type InventoryClient struct {
	base     string
	pageSize int
	h        *http.Client
}

// NewInventoryClient creates a client for the inventory endpoint.
func NewInventoryClient(base string) *InventoryClient {
	return &InventoryClient{
		base:     base,
		pageSize: 100,
		h:        &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchSnapshot downloads all listing pages and converts them into snapshots.
// Vehicles whose identifier, price or odometer cannot be parsed are dropped
// here; the merge layer would reject them anyway.
func (c *InventoryClient) FetchSnapshot(ctx context.Context) ([]*domain.VehicleSnapshot, error) {
	scrapedAt := time.Now().UTC()
	var out []*domain.VehicleSnapshot

	page := 1
	for {
		payload, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for _, item := range payload.Items {
			snap, err := snapshotFromItem(item, scrapedAt)
			if err != nil {
				log.Printf("[scraper] dropping listing %q: %v", item.CarID, err)
				continue
			}
			out = append(out, snap)
		}

		if payload.Size <= 0 || page*payload.Size >= payload.Total || len(payload.Items) == 0 {
			return out, nil
		}
		page++
	}
}

func (c *InventoryClient) fetchPage(ctx context.Context, page int) (*listingPage, error) {
	u, err := url.Parse(c.base + "/listings")
	if err != nil {
		return nil, fmt.Errorf("parse inventory url: %w", err)
	}
	q := u.Query()
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("size", fmt.Sprintf("%d", c.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch inventory page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("inventory %s returned %d: %s", u.String(), resp.StatusCode, string(b))
	}

	var payload listingPage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode inventory page %d: %w", page, err)
	}
	return &payload, nil
}

// snapshotFromItem parses the raw listing fields. Identifier, model, price and
// odometer are required; everything else degrades to nil when absent.
func snapshotFromItem(item listingItem, scrapedAt time.Time) (*domain.VehicleSnapshot, error) {
	id, err := parsing.ParseVehicleID(item.CarID)
	if err != nil {
		return nil, err
	}
	if item.ModelName == "" {
		return nil, fmt.Errorf("listing %d: empty model name", id)
	}
	price, err := parsing.ParsePrice(item.Price)
	if err != nil {
		return nil, err
	}
	km, err := parsing.ParseKilometers(item.Kilometers)
	if err != nil {
		return nil, err
	}

	snap := &domain.VehicleSnapshot{
		VehicleID:  id,
		ModelName:  item.ModelName,
		Price:      price,
		Kilometers: km,
		Link:       item.Link,
		ScrapedAt:  scrapedAt,
	}

	if reg, err := parsing.ParseRegistrationDate(item.RegistrationDate); err == nil {
		snap.RegistrationDate = &reg
	}
	snap.PowerKW, snap.PowerPS = parsing.ParsePower(item.Power)
	if r, err := parsing.ParseBatteryRange(item.BatteryRange); err == nil {
		snap.BatteryRangeKM = &r
	}

	for _, e := range item.Equipment {
		snap.Equipment = append(snap.Equipment, domain.EquipmentItem{Category: e.Category, Name: e.Name})
	}

	return snap, nil
}
