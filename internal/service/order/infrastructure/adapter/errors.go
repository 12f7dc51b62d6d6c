package adapter

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/httpclient"
	"fooddash/internal/service/order/domain"
)

// classifyRestaurantError 把餐厅服务的 HTTP 错误映射为领域错误。
func classifyRestaurantError(err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound:
			return errors.Wrap(domain.ErrMenuNotFound, err.Error())
		case http.StatusBadRequest:
			if strings.Contains(strings.ToLower(se.Detail), "not enough inventory") {
				return errors.Wrap(domain.ErrInsufficientStock, err.Error())
			}
			return errors.Wrap(domain.ErrInvalidQuantity, err.Error())
		}
	}
	// 超时、连接失败和 5xx 都视为下游不可用
	if errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrap(domain.ErrDownstreamUnavailable, err.Error())
}
