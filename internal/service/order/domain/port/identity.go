package port

import "context"

// IdentityService 是用户服务的出站端口。
type IdentityService interface {
	// Verify 校验 token 并返回用户 ID；任何失败都归为 domain.ErrUnauthorized。
	Verify(ctx context.Context, token string) (int64, error)
}
