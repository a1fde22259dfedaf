package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/commissions/internal/api"
	"github.com/dmitrijs2005/commissions/internal/common"
	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthPrefix = "/grpc.health.v1.Health/"

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if api.Public(info.FullMethod) || strings.HasPrefix(info.FullMethod, healthPrefix) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	id, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	ctx = logging.ContextWith(auth.WithIdentity(ctx, id), "user_id", id.UserID)
	return handler(ctx, req)
}

// errorInterceptor converts engine errors into status errors. Unexpected
// errors are logged and hidden behind a generic message.
func (s *GRPCServer) errorInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx = logging.ContextWith(ctx, "method", info.FullMethod)
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}

	code := api.Code(err)
	if code == codes.Internal {
		s.logger.Error(ctx, "request failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	s.logger.Debug(ctx, "request rejected", "code", code.String(), "error", err)
	return nil, status.Error(code, err.Error())
}

// caller returns the identity the access token interceptor stored in ctx.
func caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, status.Error(codes.Unauthenticated, "missing identity")
	}
	return id, nil
}
