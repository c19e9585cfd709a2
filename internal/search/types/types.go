package types

import "strings"

// Record is the normalized business listing shared by every provider.
// The JSON field names are a stable contract with the frontend and the
// export formats; do not rename them.
type Record struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"Business Name"`
	Category    string  `json:"Category"`
	Address     string  `json:"Address"`
	City        string  `json:"City"`
	Country     string  `json:"Country"`
	Phone       string  `json:"Phone Number"`
	Email       string  `json:"Email"`
	Website     string  `json:"Website"`
	Rating      string  `json:"Google Rating"`
	ReviewCount string  `json:"Number of Reviews"`
	Latitude    float64 `json:"Latitude"`
	Longitude   float64 `json:"Longitude"`
	Source      string  `json:"API Source"`
}

// Key returns the dedup identity: two records with the same lower-cased
// name and address describe the same real-world business.
func (r Record) Key() string {
	return strings.ToLower(r.Name + "|" + r.Address)
}

// Populated counts the record's non-empty fields. Name and address are
// included even though they are always set; they cancel out when two
// colliding records are compared.
func (r Record) Populated() int {
	n := 0
	for _, s := range []string{
		r.Name, r.Category, r.Address, r.City, r.Country,
		r.Phone, r.Email, r.Website, r.Rating, r.ReviewCount, r.Source,
	} {
		if s != "" {
			n++
		}
	}
	if r.Latitude != 0 {
		n++
	}
	if r.Longitude != 0 {
		n++
	}
	return n
}

// Result is the outcome of one aggregated search.
type Result struct {
	Records  []Record `json:"records"`
	Provider string   `json:"provider"`
}
