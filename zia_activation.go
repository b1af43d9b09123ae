package zscaler

import (
	"context"
	"net/http"

	"github.com/tphakala/go-zscaler/internal/api"
)

// ActivationService activates pending ZIA configuration changes.
type ActivationService interface {
	// Status reports whether changes are pending. It is never cached.
	Status(ctx context.Context, opts ...RequestOption) (*ActivationStatus, error)

	// Activate pushes pending changes live.
	Activate(ctx context.Context, opts ...RequestOption) (*ActivationStatus, error)
}

type activationService struct {
	client *productClient
}

func newActivationService(client *productClient) *activationService {
	return &activationService{client: client}
}

func (s *activationService) Status(ctx context.Context, opts ...RequestOption) (*ActivationStatus, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result ActivationStatus
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    "/status",
		Headers: reqCfg.headers,
		NoCache: true,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *activationService) Activate(ctx context.Context, opts ...RequestOption) (*ActivationStatus, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result ActivationStatus
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    "/status/activate",
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
