package handler

import "net/http"

// category and location are static reference entries served to the
// frontend for its search form.
type category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var categories = []category{
	{ID: "all", Name: "All Categories"},
	{ID: "hotel", Name: "Hotels"},
	{ID: "restaurant", Name: "Restaurants"},
	{ID: "bar", Name: "Bars"},
	{ID: "cafe", Name: "Cafes"},
	{ID: "bakery", Name: "Bakeries"},
	{ID: "nightclub", Name: "Nightclubs"},
}

var popularLocations = []location{
	{ID: "rome", Name: "Rome, Italy"},
	{ID: "milan", Name: "Milan, Italy"},
	{ID: "florence", Name: "Florence, Italy"},
	{ID: "venice", Name: "Venice, Italy"},
	{ID: "naples", Name: "Naples, Italy"},
	{ID: "turin", Name: "Turin, Italy"},
	{ID: "bologna", Name: "Bologna, Italy"},
	{ID: "italy", Name: "Italy (All)"},
}

// IndexHandler handles GET /.
func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":        "Business Finder API",
		"version":     "1.0.0",
		"description": "API for finding and accessing business information",
	})
}

// CategoriesHandler handles GET /api/categories.
func (h *Handler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categories)
}

// PopularLocationsHandler handles GET /api/locations/popular.
func (h *Handler) PopularLocationsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, popularLocations)
}
