package services

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"weddingplanners/api/internal/config"
	"weddingplanners/api/internal/db"
	"weddingplanners/api/internal/models"
)

const (
	defaultRating       = 5.0
	defaultReviewsCount = 0
	maxRating           = 5.0
)

var (
	// ErrInvalidDocument is wrapped by every DecodeError.
	ErrInvalidDocument = errors.New("invalid planner document")
	// ErrInvalidLimit is returned when a listing limit is not positive.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// DecodeError describes the first field of a stored planner document that
// could not be mapped.
type DecodeError struct {
	DocumentID string
	Field      string
	Reason     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("planner %q: field %s: %s", e.DocumentID, e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrInvalidDocument
}

// MapPlanners maps docs in order, truncated to limit. Under MalformedAbort the
// first document that fails to map aborts the whole batch. Under MalformedSkip
// failing documents are left out and returned in skipped.
func MapPlanners(docs []bson.M, limit int, policy config.MalformedPolicy) (planners []models.Planner, skipped []*DecodeError, err error) {
	if limit <= 0 {
		return nil, nil, ErrInvalidLimit
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	planners = make([]models.Planner, 0, len(docs))
	for _, doc := range docs {
		planner, err := MapPlanner(doc)
		if err != nil {
			var decodeErr *DecodeError
			if policy == config.MalformedSkip && errors.As(err, &decodeErr) {
				skipped = append(skipped, decodeErr)
				continue
			}
			return nil, skipped, err
		}
		planners = append(planners, planner)
	}
	return planners, skipped, nil
}

// MapPlanner converts one raw stored document into a Planner, applying
// defaults for absent fields. A key holding null counts as absent.
func MapPlanner(doc bson.M) (models.Planner, error) {
	d := decoder{doc: doc, id: db.IDString(doc["_id"])}

	planner := models.Planner{
		ID:           d.id,
		Name:         d.requiredString("name"),
		Tagline:      d.optionalString("tagline"),
		Location:     d.requiredString("location"),
		Rating:       d.rating("rating"),
		ReviewsCount: d.count("reviews_count"),
		Specialties:  d.stringList(doc, "specialties", "specialties"),
		ImageURL:     d.optionalString("image_url"),
		Packages:     d.packages("packages"),
		Instagram:    d.optionalString("instagram"),
		Website:      d.optionalString("website"),
	}
	if d.err != nil {
		return models.Planner{}, d.err
	}
	return planner, nil
}

// decoder keeps the first error hit while walking a document.
type decoder struct {
	doc bson.M
	id  string
	err error
}

func (d *decoder) fail(field, reason string) {
	if d.err == nil {
		d.err = &DecodeError{DocumentID: d.id, Field: field, Reason: reason}
	}
}

func lookup(doc bson.M, key string) (interface{}, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.(primitive.Null); isNull {
		return nil, false
	}
	return v, true
}

func (d *decoder) requiredString(key string) string {
	return d.stringIn(d.doc, key, key, true)
}

func (d *decoder) optionalString(key string) *string {
	if _, ok := lookup(d.doc, key); !ok {
		return nil
	}
	s := d.stringIn(d.doc, key, key, false)
	return &s
}

func (d *decoder) stringIn(doc bson.M, key, path string, required bool) string {
	v, ok := lookup(doc, key)
	if !ok {
		if required {
			d.fail(path, "field required")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(path, fmt.Sprintf("expected string, got %T", v))
		return ""
	}
	return s
}

func (d *decoder) rating(key string) float64 {
	v, ok := lookup(d.doc, key)
	if !ok {
		return defaultRating
	}
	f, ok := toFloat(v)
	if !ok {
		d.fail(key, fmt.Sprintf("expected number, got %T", v))
		return 0
	}
	if f < 0 || f > maxRating {
		d.fail(key, fmt.Sprintf("must be between 0 and %g, got %g", maxRating, f))
		return 0
	}
	return f
}

func (d *decoder) count(key string) int {
	v, ok := lookup(d.doc, key)
	if !ok {
		return defaultReviewsCount
	}
	n, ok := toInt(v)
	if !ok {
		d.fail(key, fmt.Sprintf("expected integer, got %T", v))
		return 0
	}
	if n < 0 {
		d.fail(key, fmt.Sprintf("must be non-negative, got %d", n))
		return 0
	}
	return n
}

func (d *decoder) stringList(doc bson.M, key, path string) []string {
	out := []string{}
	v, ok := lookup(doc, key)
	if !ok {
		return out
	}
	if strs, ok := v.([]string); ok {
		return append(out, strs...)
	}
	items, ok := toSlice(v)
	if !ok {
		d.fail(path, fmt.Sprintf("expected array, got %T", v))
		return out
	}
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			d.fail(fmt.Sprintf("%s[%d]", path, i), fmt.Sprintf("expected string, got %T", item))
			return out
		}
		out = append(out, s)
	}
	return out
}

func (d *decoder) packages(key string) []models.Package {
	out := []models.Package{}
	v, ok := lookup(d.doc, key)
	if !ok {
		return out
	}
	items, ok := toSlice(v)
	if !ok {
		d.fail(key, fmt.Sprintf("expected array, got %T", v))
		return out
	}
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", key, i)
		pkgDoc, ok := toDoc(item)
		if !ok {
			d.fail(path, fmt.Sprintf("expected object, got %T", item))
			return out
		}
		pkg := models.Package{
			Name:     d.stringIn(pkgDoc, "name", path+".name", true),
			Price:    d.price(pkgDoc, path+".price"),
			Features: d.stringList(pkgDoc, "features", path+".features"),
		}
		if d.err != nil {
			return out
		}
		out = append(out, pkg)
	}
	return out
}

func (d *decoder) price(doc bson.M, path string) float64 {
	v, ok := lookup(doc, "price")
	if !ok {
		d.fail(path, "field required")
		return 0
	}
	f, ok := toFloat(v)
	if !ok {
		d.fail(path, fmt.Sprintf("expected number, got %T", v))
		return 0
	}
	if f < 0 {
		d.fail(path, fmt.Sprintf("must be non-negative, got %g", f))
		return 0
	}
	return f
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toInt accepts integer types and doubles with no fractional part.
func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n < float64(math.MinInt) || n >= float64(math.MaxInt) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case primitive.A:
		return s, true
	case []interface{}:
		return s, true
	case []bson.M:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func toDoc(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	default:
		return nil, false
	}
}
