package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/httpclient"
	"fooddash/internal/service/order/domain"
)

// IdentityHTTPAdapter 实现了 port.IdentityService，调用用户服务的 /validate。
type IdentityHTTPAdapter struct {
	client   *httpclient.Client
	resolver httpclient.Resolver
}

func NewIdentityHTTPAdapter(client *httpclient.Client, resolver httpclient.Resolver) *IdentityHTTPAdapter {
	return &IdentityHTTPAdapter{client: client, resolver: resolver}
}

type validateResponse struct {
	UserID int64 `json:"user_id"`
}

// Verify 失败即拒绝：空 token、非 2xx、超时或不可达都返回 ErrUnauthorized。
func (a *IdentityHTTPAdapter) Verify(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errors.Wrap(domain.ErrUnauthorized, "missing bearer token")
	}
	base, err := a.resolver.Resolve(ctx)
	if err != nil {
		return 0, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	var resp validateResponse
	if err := a.client.DoJSON(ctx, http.MethodPost, base+"/validate", header, nil, &resp); err != nil {
		return 0, errors.Wrap(domain.ErrUnauthorized, err.Error())
	}
	if resp.UserID <= 0 {
		return 0, errors.Wrap(domain.ErrUnauthorized, "validate response has no user id")
	}
	return resp.UserID, nil
}
