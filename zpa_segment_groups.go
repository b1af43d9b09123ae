package zscaler

import (
	"context"
	"iter"
	"net/http"
	"net/url"

	"github.com/tphakala/go-zscaler/internal/api"
)

// SegmentGroupService provides operations on ZPA segment groups.
type SegmentGroupService interface {
	// List returns an iterator over all segment groups whose name matches
	// search. An empty search matches everything.
	List(ctx context.Context, search string, page *PageOptions, opts ...RequestOption) iter.Seq2[*SegmentGroup, error]

	// ListPage returns a single page along with the total page count.
	ListPage(ctx context.Context, search string, page *PageOptions, opts ...RequestOption) (*SegmentGroupPage, error)

	// Get retrieves a segment group by ID.
	Get(ctx context.Context, id string, opts ...RequestOption) (*SegmentGroup, error)

	// Create creates a new segment group.
	Create(ctx context.Context, group *SegmentGroup, opts ...RequestOption) (*SegmentGroup, error)

	// Update replaces a segment group. ZPA answers with no body.
	Update(ctx context.Context, id string, group *SegmentGroup, opts ...RequestOption) error

	// Delete removes a segment group by ID.
	Delete(ctx context.Context, id string, opts ...RequestOption) error
}

type segmentGroupService struct {
	client     *productClient
	customerID string
}

func newSegmentGroupService(client *productClient, customerID string) *segmentGroupService {
	return &segmentGroupService{client: client, customerID: customerID}
}

func (s *segmentGroupService) path(id string) string {
	p := "/mgmtconfig/v1/admin/customers/" + url.PathEscape(s.customerID) + "/segmentGroup"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

// validateID checks that a ZPA resource ID is not empty.
func validateID(resource, id string) error {
	if id == "" {
		return &ValidationError{
			APIError: APIError{Message: resource + " ID cannot be empty"},
		}
	}
	return nil
}

func validateSegmentGroup(group *SegmentGroup) error {
	if group == nil {
		return &ValidationError{
			APIError: APIError{Message: "segment group cannot be nil"},
		}
	}
	if group.Name == "" {
		return &ValidationError{
			APIError: APIError{Message: "segment group name is required"},
		}
	}
	return nil
}

func (s *segmentGroupService) List(ctx context.Context, search string, page *PageOptions, opts ...RequestOption) iter.Seq2[*SegmentGroup, error] {
	return paginate(ctx, page, maxPageSizeZPA, func(ctx context.Context, pageNum, pageSize int) (*pageResult[*SegmentGroup], error) {
		p, err := s.fetchPage(ctx, search, pageNum, pageSize, opts)
		if err != nil {
			return nil, err
		}
		items := make([]*SegmentGroup, len(p.List))
		for i := range p.List {
			items[i] = &p.List[i]
		}
		return &pageResult[*SegmentGroup]{Items: items, TotalPages: p.TotalPages}, nil
	})
}

func (s *segmentGroupService) ListPage(ctx context.Context, search string, page *PageOptions, opts ...RequestOption) (*SegmentGroupPage, error) {
	o := page.normalize(maxPageSizeZPA)
	return s.fetchPage(ctx, search, o.Page, o.PageSize, opts)
}

func (s *segmentGroupService) fetchPage(ctx context.Context, search string, pageNum, pageSize int, opts []RequestOption) (*SegmentGroupPage, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}

	var result SegmentGroupPage
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    s.path(""),
		Query:   pageQuery(q, "page", "pagesize", pageNum, pageSize),
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *segmentGroupService) Get(ctx context.Context, id string, opts ...RequestOption) (*SegmentGroup, error) {
	if err := validateID("segment group", id); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result SegmentGroup
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    s.path(id),
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, tagNotFound(err, "segment group", id)
	}
	return &result, nil
}

func (s *segmentGroupService) Create(ctx context.Context, group *SegmentGroup, opts ...RequestOption) (*SegmentGroup, error) {
	if err := validateSegmentGroup(group); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result SegmentGroup
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    s.path(""),
		Body:    group,
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *segmentGroupService) Update(ctx context.Context, id string, group *SegmentGroup, opts ...RequestOption) error {
	if err := validateID("segment group", id); err != nil {
		return err
	}
	if err := validateSegmentGroup(group); err != nil {
		return err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	body := *group
	body.ID = id

	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPut,
		Path:    s.path(id),
		Body:    &body,
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return tagNotFound(err, "segment group", id)
	}
	return nil
}

func (s *segmentGroupService) Delete(ctx context.Context, id string, opts ...RequestOption) error {
	if err := validateID("segment group", id); err != nil {
		return err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodDelete,
		Path:    s.path(id),
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return tagNotFound(err, "segment group", id)
	}
	return nil
}
