package comps

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/dealscope-client/internal/utils"
)

// Query selects the subject property. Either PropertyID or Address is required.
type Query struct {
	PropertyID  string
	Address     string
	Zip         string
	RadiusMiles *float64
	Limit       *int
	// MaxAgeDays limits sales comps to recent closings. Ignored for rent comps.
	MaxAgeDays *int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.PropertyID != "" {
		v.Set("property_id", q.PropertyID)
	}
	if q.Address != "" {
		v.Set("address", q.Address)
	}
	if q.Zip != "" {
		v.Set("zip", q.Zip)
	}
	if q.RadiusMiles != nil {
		v.Set("radius_miles", strconv.FormatFloat(utils.Value(q.RadiusMiles), 'f', -1, 64))
	}
	if q.Limit != nil {
		v.Set("limit", strconv.Itoa(utils.Value(q.Limit)))
	}
	if q.MaxAgeDays != nil {
		v.Set("max_age_days", strconv.Itoa(utils.Value(q.MaxAgeDays)))
	}
	return v
}

type Comparable struct {
	ID            string     `json:"id"`
	Address       string     `json:"address"`
	Price         float64    `json:"price,omitempty"`
	MonthlyRent   float64    `json:"monthly_rent,omitempty"`
	Beds          float64    `json:"beds"`
	Baths         float64    `json:"baths"`
	Sqft          int        `json:"sqft"`
	DistanceMiles float64    `json:"distance_miles"`
	Similarity    float64    `json:"similarity_score"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

type Result struct {
	PropertyID  string       `json:"property_id"`
	Comparables []Comparable `json:"comparables"`
	// Estimate is the backend's value (sales) or monthly rent (rent) estimate derived from the comps.
	Estimate   float64 `json:"estimate"`
	Confidence string  `json:"confidence"`
}
