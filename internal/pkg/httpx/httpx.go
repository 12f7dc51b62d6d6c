// internal/pkg/httpx/httpx.go
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"fooddash/internal/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// WriteJSON 以指定状态码输出 JSON。
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteRaw 输出已经序列化好的 JSON（缓存中的快照原样返回）。
func WriteRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteError 输出 {"detail": "..."}。
func WriteError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, map[string]string{"detail": detail})
}

var ErrBadRequest = errors.New("invalid request body")

// DecodeJSON 解析请求体，拒绝未知字段。
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(ErrBadRequest, err.Error())
	}
	return nil
}

// PathID 解析路径参数中的正整数 ID。
func PathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Middleware 提取上游追踪上下文，生成或透传请求 ID，并把带 request_id 的 logger 放进 ctx。
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)

		l := logger.Ctx(ctx).With().Str("request_id", reqID).Logger()
		ctx = logger.WithContext(ctx, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
