package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	svcErr "github.com/oggyb/matcha/internal/errors"
)

// HeaderUserID carries a trusted user id when header identity is enabled.
const HeaderUserID = "X-User-ID"

type ctxKey struct{}

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id stored on ctx.
func UserID(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(ctxKey{}).(uint64)
	return id, ok && id != 0
}

// MustUserID is UserID for handlers behind the interceptor.
func MustUserID(ctx context.Context) (uint64, error) {
	if id, ok := UserID(ctx); ok {
		return id, nil
	}
	return 0, svcErr.ErrUnauthenticated
}

// FromRequest resolves the caller of an HTTP request.
//
// Behavior:
//   - Authorization: Bearer <token>, then the token query parameter
//     (browsers cannot set headers on a websocket handshake).
//   - X-User-ID is honoured only when header identity is enabled.
func (v *Verifier) FromRequest(r *http.Request) (uint64, error) {
	if token := bearer(r.Header.Get("Authorization")); token != "" {
		return v.Verify(token)
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return v.Verify(token)
	}
	if v.headerIdentity {
		if raw := r.Header.Get(HeaderUserID); raw != "" {
			return parseUserID(raw)
		}
	}
	return 0, fmt.Errorf("no credentials: %w", svcErr.ErrUnauthenticated)
}

// FromMetadata resolves the caller of a gRPC call.
func (v *Verifier) FromMetadata(ctx context.Context) (uint64, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if token := bearer(first(md, "authorization")); token != "" {
		return v.Verify(token)
	}
	if v.headerIdentity {
		if raw := first(md, strings.ToLower(HeaderUserID)); raw != "" {
			return parseUserID(raw)
		}
	}
	return 0, fmt.Errorf("no credentials: %w", svcErr.ErrUnauthenticated)
}

// UnaryServerInterceptor authenticates every call except the listed full
// method names (health checks, reflection).
func (v *Verifier) UnaryServerInterceptor(public ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(public))
	for _, m := range public {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return handler(ctx, req)
		}
		userID, err := v.FromMetadata(ctx)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		return handler(WithUserID(ctx, userID), req)
	}
}

func bearer(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func first(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}
