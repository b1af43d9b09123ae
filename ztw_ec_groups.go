package zscaler

import (
	"context"
	"iter"
	"net/http"

	"github.com/tphakala/go-zscaler/internal/api"
)

// ECGroupService lists Cloud & Branch Connector groups.
type ECGroupService interface {
	List(ctx context.Context, page *PageOptions, opts ...RequestOption) iter.Seq2[*ECGroup, error]
}

type ecGroupService struct {
	client *productClient
}

func newECGroupService(client *productClient) *ecGroupService {
	return &ecGroupService{client: client}
}

func (s *ecGroupService) List(ctx context.Context, page *PageOptions, opts ...RequestOption) iter.Seq2[*ECGroup, error] {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	return paginate(ctx, page, maxPageSizeZTW, func(ctx context.Context, pageNum, pageSize int) (*pageResult[*ECGroup], error) {
		var items []*ECGroup
		_, err := s.client.do(ctx, &api.Request{
			Method:  http.MethodGet,
			Path:    "/ecgroup",
			Query:   pageQuery(nil, "page", "pageSize", pageNum, pageSize),
			Headers: reqCfg.headers,
			NoCache: reqCfg.noCache,
		}, &items)
		if err != nil {
			return nil, err
		}
		return &pageResult[*ECGroup]{Items: items}, nil
	})
}
