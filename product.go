package zscaler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tphakala/go-zscaler/internal/api"
	"github.com/tphakala/go-zscaler/internal/auth"
)

// Product identifies a Zscaler product API.
type Product string

// Supported products.
const (
	ProductZIA Product = "zia"
	ProductZPA Product = "zpa"
	ProductZCC Product = "zcc"
	ProductZTW Product = "ztw"
)

// Products lists every supported product.
var Products = []Product{ProductZIA, ProductZPA, ProductZCC, ProductZTW}

const (
	defaultCloud = "production"
	oneAPIHost   = "api.zsapi.net"

	legacyPrimaryCloud = "zscaler"
)

var oneAPIPaths = map[Product]string{
	ProductZIA: "/zia/api/v1",
	ProductZPA: "/zpa",
	ProductZCC: "/zcc/papi",
	ProductZTW: "/ztw/api/v1",
}

func isProduction(cloud string) bool {
	cloud = strings.ToLower(strings.TrimSpace(cloud))
	return cloud == "" || cloud == defaultCloud
}

// OneAPIBaseURL returns the OneAPI gateway URL of a product.
func OneAPIBaseURL(p Product, cloud string) string {
	host := oneAPIHost
	if !isProduction(cloud) {
		host = fmt.Sprintf("api.%s.zsapi.net", strings.ToLower(cloud))
	}
	return "https://" + host + oneAPIPaths[p]
}

// LegacyBaseURL returns the per-product API URL used with legacy
// credentials. cloud is the Zscaler cloud name, e.g. "zscalertwo"; empty
// or "production" selects the primary cloud.
func LegacyBaseURL(p Product, cloud string) string {
	cloud = strings.ToLower(strings.TrimSpace(cloud))
	if isProduction(cloud) && p != ProductZPA {
		cloud = legacyPrimaryCloud
	}
	switch p {
	case ProductZIA:
		return fmt.Sprintf("https://zsapi.%s.net/api/v1", cloud)
	case ProductZPA:
		if isProduction(cloud) {
			return "https://config.private.zscaler.com"
		}
		return fmt.Sprintf("https://config.zpa%s.net", cloud)
	case ProductZCC:
		return fmt.Sprintf("https://api-mobile.%s.net/papi", cloud)
	case ProductZTW:
		return fmt.Sprintf("https://connector.%s.net/api/v1", cloud)
	default:
		return ""
	}
}

// productClient binds an executor and its session to one product.
type productClient struct {
	product Product
	exec    *api.Executor
	session *auth.Manager
}

// do sends req and maps transport failures and error statuses to the
// typed errors of this package.
func (p *productClient) do(ctx context.Context, req *api.Request, result any) (*api.Response, error) {
	if p == nil {
		return nil, ErrProductNotConfigured
	}
	resp, err := p.exec.DoJSON(ctx, req, result)
	if err != nil {
		return nil, wrapError(string(p.product), err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseError(string(p.product), resp.StatusCode, resp.Body, resp.Headers)
	}
	return resp, nil
}

// tagNotFound names the missing resource on a NotFoundError.
func tagNotFound(err error, resourceType, id string) error {
	nf, ok := err.(*NotFoundError)
	if !ok {
		return err
	}
	nf.ResourceType = resourceType
	nf.ResourceID = id
	return nf
}
