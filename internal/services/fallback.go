package services

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/models"
)

// sampleDocuments is the listing served while the store is unreachable.
// It goes through MapPlanner like stored documents do.
var sampleDocuments = []bson.M{
	{
		"_id":           "demo1",
		"name":          "We Me Good Weddings",
		"tagline":       "Timeless celebrations, flawlessly planned",
		"location":      "New York, NY",
		"rating":        4.9,
		"reviews_count": 128,
		"specialties":   bson.A{"Full-Service Planning", "Luxury", "Destination"},
		"image_url":     "https://images.unsplash.com/photo-1519741497674-611481863552?q=80&w=1400&auto=format&fit=crop",
		"packages": bson.A{
			bson.M{"name": "Classic", "price": 3500, "features": bson.A{"Timeline", "Vendor Coordination", "Day-Of Team"}},
			bson.M{"name": "Signature", "price": 6500, "features": bson.A{"Design", "Rehearsal", "Logistics Lead"}},
		},
		"instagram": "https://instagram.com/wemegood",
		"website":   "https://wemegood.example.com",
	},
	{
		"_id":           "demo2",
		"name":          "EverAfter Collective",
		"tagline":       "Design-forward weddings with heart",
		"location":      "Los Angeles, CA",
		"rating":        4.8,
		"reviews_count": 92,
		"specialties":   bson.A{"Design", "Partial Planning", "Coordinaton"},
		"image_url":     "https://images.unsplash.com/photo-1522673607200-164d1b6ce486?q=80&w=1400&auto=format&fit=crop",
		"packages": bson.A{
			bson.M{"name": "Partial Planning", "price": 2800, "features": bson.A{"Vendor Shortlist", "Budget Mapping"}},
		},
		"instagram": nil,
		"website":   nil,
	},
}

func init() {
	mustMapSamples(sampleDocuments)
}

func mustMapSamples(docs []bson.M) []models.Planner {
	planners, _, err := MapPlanners(docs, len(docs), config.MalformedAbort)
	if err != nil {
		panic(fmt.Sprintf("fallback planner data is invalid: %v", err))
	}
	return planners
}

// FallbackPlanners returns the sample listing truncated to limit. Each call
// maps the samples afresh, so callers never share slices or pointers.
func FallbackPlanners(limit int) []models.Planner {
	docs := sampleDocuments
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return mustMapSamples(docs)
}
