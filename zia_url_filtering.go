package zscaler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tphakala/go-zscaler/internal/api"
)

const urlFilteringRulesPath = "/urlFilteringRules"

// URLFilteringRuleService provides operations on ZIA URL filtering rules.
// ZIA returns every rule in a single response, so List is not paged.
type URLFilteringRuleService interface {
	List(ctx context.Context, opts ...RequestOption) ([]*URLFilteringRule, error)
	Get(ctx context.Context, id int, opts ...RequestOption) (*URLFilteringRule, error)
	Create(ctx context.Context, rule *URLFilteringRule, opts ...RequestOption) (*URLFilteringRule, error)
	Update(ctx context.Context, id int, rule *URLFilteringRule, opts ...RequestOption) (*URLFilteringRule, error)
	Delete(ctx context.Context, id int, opts ...RequestOption) error
}

type urlFilteringRuleService struct {
	client *productClient
}

func newURLFilteringRuleService(client *productClient) *urlFilteringRuleService {
	return &urlFilteringRuleService{client: client}
}

func validateURLFilteringRule(rule *URLFilteringRule) error {
	if rule == nil {
		return &ValidationError{
			APIError: APIError{Message: "rule cannot be nil"},
		}
	}
	fields := map[string]string{}
	if rule.Name == "" {
		fields["name"] = "required"
	}
	if rule.Order < 1 {
		fields["order"] = "must be at least 1"
	}
	if rule.Rank < 0 || rule.Rank > 7 {
		fields["rank"] = "must be between 0 and 7"
	}
	switch rule.Action {
	case ActionAllow, ActionBlock, ActionCaution:
	default:
		fields["action"] = "must be ALLOW, BLOCK or CAUTION"
	}
	if len(fields) > 0 {
		return &ValidationError{
			APIError: APIError{Message: "invalid URL filtering rule"},
			Fields:   fields,
		}
	}
	return nil
}

func (s *urlFilteringRuleService) List(ctx context.Context, opts ...RequestOption) ([]*URLFilteringRule, error) {
	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result []*URLFilteringRule
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    urlFilteringRulesPath,
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *urlFilteringRuleService) Get(ctx context.Context, id int, opts ...RequestOption) (*URLFilteringRule, error) {
	if err := validateNumericID("rule", id); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result URLFilteringRule
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodGet,
		Path:    urlFilteringRulesPath + "/" + strconv.Itoa(id),
		Headers: reqCfg.headers,
		NoCache: reqCfg.noCache,
	}, &result)
	if err != nil {
		return nil, tagNotFound(err, "url filtering rule", strconv.Itoa(id))
	}
	return &result, nil
}

func (s *urlFilteringRuleService) Create(ctx context.Context, rule *URLFilteringRule, opts ...RequestOption) (*URLFilteringRule, error) {
	if err := validateURLFilteringRule(rule); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	var result URLFilteringRule
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPost,
		Path:    urlFilteringRulesPath,
		Body:    rule,
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *urlFilteringRuleService) Update(ctx context.Context, id int, rule *URLFilteringRule, opts ...RequestOption) (*URLFilteringRule, error) {
	if err := validateNumericID("rule", id); err != nil {
		return nil, err
	}
	if err := validateURLFilteringRule(rule); err != nil {
		return nil, err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	body := *rule
	body.ID = id

	var result URLFilteringRule
	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodPut,
		Path:    urlFilteringRulesPath + "/" + strconv.Itoa(id),
		Body:    &body,
		Headers: reqCfg.headers,
	}, &result)
	if err != nil {
		return nil, tagNotFound(err, "url filtering rule", strconv.Itoa(id))
	}
	return &result, nil
}

func (s *urlFilteringRuleService) Delete(ctx context.Context, id int, opts ...RequestOption) error {
	if err := validateNumericID("rule", id); err != nil {
		return err
	}

	reqCfg := newRequestConfig()
	reqCfg.apply(opts...)

	_, err := s.client.do(ctx, &api.Request{
		Method:  http.MethodDelete,
		Path:    urlFilteringRulesPath + "/" + strconv.Itoa(id),
		Headers: reqCfg.headers,
	}, nil)
	if err != nil {
		return tagNotFound(err, "url filtering rule", strconv.Itoa(id))
	}
	return nil
}
