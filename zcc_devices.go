package zscaler

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tphakala/go-zscaler/internal/api"
)

// DeviceService lists Client Connector devices.
type DeviceService interface {
	// List returns an iterator over enrolled devices matching the filter.
	List(ctx context.Context, filter *DeviceFilter, page *PageOptions, opts ...RequestOption) iter.Seq2[*Device, error]
}

type deviceService struct {
	client *productClient
}

func newDeviceService(client *productClient) *deviceService {
	return &deviceService{client: client}
}

func (s *deviceService) List(ctx context.Context, filter *DeviceFilter, page *PageOptions, opts ...RequestOption) iter.Seq2[*Device, error] {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	return paginate(ctx, page, maxPageSizeZCC, func(ctx context.Context, pageNum, pageSize int) (*pageResult[*Device], error) {
		q := url.Values{}
		if filter != nil {
			if filter.Username != "" {
				q.Set("username", filter.Username)
			}
			if filter.OSType != OSTypeAny {
				q.Set("osType", strconv.Itoa(int(filter.OSType)))
			}
		}

		var items []*Device
		_, err := s.client.do(ctx, &api.Request{
			Method:  http.MethodGet,
			Path:    "/public/v1/getDevices",
			Query:   pageQuery(q, "page", "pageSize", pageNum, pageSize),
			Headers: reqCfg.headers,
			NoCache: reqCfg.noCache,
		}, &items)
		if err != nil {
			return nil, err
		}
		return &pageResult[*Device]{Items: items}, nil
	})
}
