package properties

import (
	"net/url"
	"strconv"

	"github.com/jrsteele09/dealscope-client/internal/utils"
)

// SearchParams filters a property search. Nil and empty fields are left out of the query.
type SearchParams struct {
	Query        string
	City         string
	State        string
	Zip          string
	MinPrice     *int
	MaxPrice     *int
	Beds         *float64
	Baths        *float64
	PropertyType string
	Page         *int
	PageSize     *int
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	setString := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setInt := func(key string, val *int) {
		if val != nil {
			v.Set(key, strconv.Itoa(utils.Value(val)))
		}
	}
	setFloat := func(key string, val *float64) {
		if val != nil {
			v.Set(key, strconv.FormatFloat(utils.Value(val), 'f', -1, 64))
		}
	}

	setString("q", p.Query)
	setString("city", p.City)
	setString("state", p.State)
	setString("zip", p.Zip)
	setInt("min_price", p.MinPrice)
	setInt("max_price", p.MaxPrice)
	setFloat("beds", p.Beds)
	setFloat("baths", p.Baths)
	setString("property_type", p.PropertyType)
	setInt("page", p.Page)
	setInt("page_size", p.PageSize)
	return v
}

type Property struct {
	ID           string  `json:"id"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Zip          string  `json:"zip"`
	Price        float64 `json:"price"`
	Beds         float64 `json:"beds"`
	Baths        float64 `json:"baths"`
	Sqft         int     `json:"sqft"`
	YearBuilt    int     `json:"year_built,omitempty"`
	PropertyType string  `json:"property_type"`
	ImageURL     string  `json:"image_url,omitempty"`
	Saved        bool    `json:"is_saved"`
}

type SearchResult struct {
	Items    []Property `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}
