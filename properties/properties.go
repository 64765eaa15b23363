// Package properties searches listings and manages the signed-in user's saved properties.
package properties

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/dealscope-client/apiclient"
)

const basePath = "/api/v1/properties"

var ErrMissingID = errors.New("property id is required")

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Search runs a filtered listing search. An empty 204 response is an empty result, not an error.
func (s *Service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	res, err := apiclient.Get[SearchResult](ctx, s.client, basePath+"/search", apiclient.Request{Query: params.values()})
	if apiclient.IsNoContent(err) {
		return &SearchResult{}, nil
	}
	return res, err
}

func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	if id == "" {
		return nil, fmt.Errorf("[properties Get] %w", ErrMissingID)
	}
	return apiclient.Get[Property](ctx, s.client, itemPath(id), apiclient.Request{})
}

func (s *Service) Save(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("[properties Save] %w", ErrMissingID)
	}
	_, err := s.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: itemPath(id) + "/save"})
	return err
}

func (s *Service) Unsave(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("[properties Unsave] %w", ErrMissingID)
	}
	_, err := s.client.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: itemPath(id) + "/save"})
	return err
}

func (s *Service) ListSaved(ctx context.Context) ([]Property, error) {
	res, err := apiclient.Get[[]Property](ctx, s.client, basePath+"/saved", apiclient.Request{})
	if err != nil {
		if apiclient.IsNoContent(err) {
			return nil, nil
		}
		return nil, err
	}
	return *res, nil
}

func itemPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}
