package models

// PlannerCollection is the collection holding planner documents.
const PlannerCollection = "planner"

// Package is a priced offering embedded in a Planner.
type Package struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Features []string `json:"features"`
}

// Planner is the validated shape returned by the listings endpoint.
// Optional string fields are nil when absent and serialize as null.
type Planner struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Tagline      *string   `json:"tagline"`
	Location     string    `json:"location"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	Specialties  []string  `json:"specialties"`
	ImageURL     *string   `json:"image_url"`
	Packages     []Package `json:"packages"`
	Instagram    *string   `json:"instagram"`
	Website      *string   `json:"website"`
}

// PlannerSource says where a listing came from.
type PlannerSource string

const (
	PlannerSourceStore    PlannerSource = "store"
	PlannerSourceFallback PlannerSource = "fallback"
)

// PlannerListing is the result of a listing request.
type PlannerListing struct {
	Planners []Planner
	Source   PlannerSource
	// Skipped counts malformed documents dropped under the skip policy.
	Skipped int
}
