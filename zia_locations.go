package zscaler

import (
	"context"
	"iter"
	"net/http"
	"strconv"

	"github.com/tphakala/go-zscaler/internal/api"
)

const locationsPath = "/locations"

// LocationService provides operations on ZIA locations.
type LocationService interface {
	// List returns an iterator over all locations matching the filter.
	// The iterator fetches pages lazily as you iterate.
	List(ctx context.Context, filter *LocationFilter, page *PageOptions, opts ...RequestOption) iter.Seq2[*Location, error]

	// ListPage returns a single page of locations.
	// Use this for manual pagination control.
	ListPage(ctx context.Context, filter *LocationFilter, page *PageOptions, opts ...RequestOption) ([]*Location, error)

	// Get retrieves a single location by ID.
	Get(ctx context.Context, id int, opts ...RequestOption) (*Location, error)

	// Create creates a new location.
	Create(ctx context.Context, loc *Location, opts ...RequestOption) (*Location, error)

	// Update replaces an existing location.
	Update(ctx context.Context, id int, loc *Location, opts ...RequestOption) (*Location, error)

	// Delete removes a location by ID.
	Delete(ctx context.Context, id int, opts ...RequestOption) error
}

// locationService implements LocationService.
type locationService struct {
	client *productClient
}

func newLocationService(client *productClient) *locationService {
	return &locationService{client: client}
}

// List returns an iterator over all locations matching the filter.
func (s *locationService) List(ctx context.Context, filter *LocationFilter, page *PageOptions, opts ...RequestOption) iter.Seq2[*Location, error] {
	return paginate(ctx, page, maxPageSizeZIA, func(ctx context.Context, pageNum, pageSize int) (*pageResult[*Location], error) {
		items, err := s.fetchPage(ctx, filter, pageNum, pageSize, opts)
		if err != nil {
			return nil, err
		}
		return &pageResult[*Location]{Items: items}, nil
	})
}

// ListPage returns a single page of locations.
func (s *locationService) ListPage(ctx context.Context, filter *LocationFilter, page *PageOptions, opts ...RequestOption) ([]*Location, error) {
	o := page.normalize(maxPageSizeZIA)
	return s.fetchPage(ctx, filter, o.Page, o.PageSize, opts)
}

func (s *locationService) fetchPage(ctx context.Context, filter *LocationFilter, pageNum, pageSize int, opts []RequestOption) ([]*Location, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result []*Location
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    locationsPath,
		Query:   pageQuery(filter.query(), "page", "pageSize", pageNum, pageSize),
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// validateNumericID checks that a ZIA/ZTW resource ID is set.
func validateNumericID(resource string, id int) error {
	if id <= 0 {
		return &ValidationError{
			APIError: APIError{Message: resource + " ID must be positive"},
		}
	}
	return nil
}

// validateLocation validates a location create or update request.
func validateLocation(loc *Location) error {
	if loc == nil {
		return &ValidationError{
			APIError: APIError{Message: "location cannot be nil"},
		}
	}
	if loc.Name == "" {
		return &ValidationError{
			APIError: APIError{Message: "location name is required"},
		}
	}
	return nil
}

// Get retrieves a single location by ID.
func (s *locationService) Get(ctx context.Context, id int, opts ...RequestOption) (*Location, error) {
	if err := validateNumericID("location", id); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result Location
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    locationsPath + "/" + strconv.Itoa(id),
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, tagNotFound(err, "location", strconv.Itoa(id))
	}

	return &result, nil
}

// Create creates a new location.
func (s *locationService) Create(ctx context.Context, loc *Location, opts ...RequestOption) (*Location, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result Location
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    locationsPath,
		Body:    loc,
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Update replaces an existing location.
func (s *locationService) Update(ctx context.Context, id int, loc *Location, opts ...RequestOption) (*Location, error) {
	if err := validateNumericID("location", id); err != nil {
		return nil, err
	}
	if err := validateLocation(loc); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	// ZIA requires the ID in the body as well
	body := *loc
	body.ID = id

	var result Location
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPut,
		Path:    locationsPath + "/" + strconv.Itoa(id),
		Body:    &body,
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, tagNotFound(err, "location", strconv.Itoa(id))
	}

	return &result, nil
}

// Delete removes a location by ID.
func (s *locationService) Delete(ctx context.Context, id int, opts ...RequestOption) error {
	if err := validateNumericID("location", id); err != nil {
		return err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodDelete,
		Path:    locationsPath + "/" + strconv.Itoa(id),
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return tagNotFound(err, "location", strconv.Itoa(id))
	}

	return nil
}
