// Package models defines core data structures for POIs, questions, and answers.
package models

import (
	"fmt"
	"strings"
)

// POI categories produced by data preparation.
const (
	CategoryRestaurant    = "restaurant"
	CategoryCafe          = "cafe"
	CategoryMuseum        = "museum"
	CategoryHotel         = "hotel"
	CategoryAttraction    = "attraction"
	CategoryReligiousSite = "religious_site"
	CategoryPark          = "park"
	CategoryHistoricSite  = "historic_site"
	CategoryNightclub     = "nightclub"
	CategoryBar           = "bar"
	CategoryClothingStore = "clothing_store"
	CategoryShoppingMall  = "shopping_mall"
	CategoryShop          = "shop"
	CategoryOther         = "other"
)

// Address is the structured street address of a POI.
type Address struct {
	Street      string `json:"street,omitempty"`
	HouseNumber string `json:"housenumber,omitempty"`
	City        string `json:"city,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// String renders the address as a single line, omitting empty parts.
func (a Address) String() string {
	var parts []string
	if a.Street != "" {
		street := a.Street
		if a.HouseNumber != "" {
			street += " " + a.HouseNumber
		}
		parts = append(parts, street)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	return strings.Join(parts, ", ")
}

// Review is a single synthetic user review attached during data preparation.
type Review struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

// ReviewData aggregates the synthetic reviews for a POI.
type ReviewData struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	TotalReviews  int      `json:"total_reviews"`
}

// POI is a point of interest record. It is created by data preparation,
// indexed once, and never mutated in place; re-indexing replaces it wholesale.
type POI struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	NameEN       string      `json:"name_en,omitempty"`
	Category     string      `json:"category"`
	Description  string      `json:"description,omitempty"`
	Address      Address     `json:"address,omitempty"`
	Lat          float64     `json:"lat,omitempty"`
	Lon          float64     `json:"lon,omitempty"`
	Cuisine      string      `json:"cuisine,omitempty"`
	OpeningHours string      `json:"opening_hours,omitempty"`
	Rating       float64     `json:"rating,omitempty"`
	ReviewData   *ReviewData `json:"review_data,omitempty"`
	DocumentText string      `json:"document_text,omitempty"`
}

// Validate checks that the POI carries the fields indexing depends on.
func (p *POI) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("poi missing id")
	}
	if p.Name == "" {
		return fmt.Errorf("poi %s missing name", p.ID)
	}
	if p.Category == "" {
		return fmt.Errorf("poi %s missing category", p.ID)
	}
	return nil
}
