package products

import (
	"github.com/shopspring/decimal"

	"github.com/trendora-shop/trendora-backend/pkg/enums"
)

// Sort orders supported by the browse endpoint.
const (
	SortPriceAsc   = "priceAsc"
	SortPriceDesc  = "priceDesc"
	SortPopularity = "popularity"
)

// ListFilters describe the filter knobs for catalog browsing. Zero values
// mean "no filter"; Collections and Category treat "all" the same as empty.
type ListFilters struct {
	Collections string
	Category    string
	Materials   []string
	Brands      []string
	Sizes       []string
	Colour      string
	Gender      enums.Gender
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	Search      string
	SortBy      string
	Limit       int
}
