// Package analytics requests investment calculations. The strategy results are computed by the backend
// and returned untouched as raw JSON keyed by strategy id.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/dealscope-client/apiclient"
)

const basePath = "/api/v1/analytics"

var (
	ErrMissingProperty = errors.New("property id or purchase price is required")
	ErrMissingID       = errors.New("property id is required")
)

type CalculationRequest struct {
	PropertyID     string   `json:"property_id,omitempty"`
	PurchasePrice  float64  `json:"purchase_price,omitempty"`
	DownPaymentPct *float64 `json:"down_payment_pct,omitempty"`
	InterestRate   *float64 `json:"interest_rate,omitempty"`
	LoanTermYears  *int     `json:"loan_term_years,omitempty"`
	MonthlyRent    *float64 `json:"monthly_rent,omitempty"`
	// Strategies limits the calculation to these strategy ids. Empty means all.
	Strategies  []string       `json:"strategies,omitempty"`
	Assumptions map[string]any `json:"assumptions,omitempty"`
}

type Calculation struct {
	ID         string                     `json:"id"`
	PropertyID string                     `json:"property_id"`
	Strategies map[string]json.RawMessage `json:"strategies"`
	CreatedAt  *time.Time                 `json:"created_at,omitempty"`
}

// Strategy decodes one strategy result into out.
func (c *Calculation) Strategy(id string, out any) (bool, error) {
	raw, ok := c.Strategies[id]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("[Calculation Strategy] %s: %w", id, err)
	}
	return true, nil
}

type Strategy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) Calculate(ctx context.Context, req CalculationRequest) (*Calculation, error) {
	if req.PropertyID == "" && req.PurchasePrice <= 0 {
		return nil, fmt.Errorf("[analytics Calculate] %w", ErrMissingProperty)
	}
	return apiclient.Send[Calculation](ctx, s.client, http.MethodPost, basePath+"/calculate", req, apiclient.Request{})
}

// Strategies lists the available strategies. A 204 means none are configured.
func (s *Service) Strategies(ctx context.Context) ([]Strategy, error) {
	res, err := apiclient.Get[[]Strategy](ctx, s.client, basePath+"/strategies", apiclient.Request{})
	if apiclient.IsNoContent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return *res, nil
}

// Get returns the latest stored calculation for a property.
func (s *Service) Get(ctx context.Context, propertyID string) (*Calculation, error) {
	if propertyID == "" {
		return nil, fmt.Errorf("[analytics Get] %w", ErrMissingID)
	}
	return apiclient.Get[Calculation](ctx, s.client, basePath+"/"+url.PathEscape(propertyID), apiclient.Request{})
}
