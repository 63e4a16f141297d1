package middleware

import (
	"errors"
	"net/http"
	"strings"

	"docgraph/pkg/auth"
	pkgerrors "docgraph/pkg/errors"

	"go.uber.org/zap"
)

// Headers the Lambda entrypoint sets from the API Gateway JWT authorizer
// context. The entrypoint strips any client-supplied copies first.
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderOrgID             = "X-Org-ID"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
)

// Authenticate validates the bearer token and puts the caller's
// auth.UserContext on the request. With trustGateway set, requests already
// authorized by API Gateway are accepted from the forwarded claim headers.
func Authenticate(validator *auth.JWTValidator, trustGateway bool, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				user *auth.UserContext
				err  error
			)
			if trustGateway && r.Header.Get(HeaderGatewayAuthorized) == "true" {
				user, err = userFromGatewayHeaders(r)
			} else {
				user, err = userFromToken(validator, r)
			}
			if err != nil {
				logger.Warn("Authentication failed",
					zap.Error(err),
					zap.String("path", r.URL.Path),
					zap.String("remoteAddr", r.RemoteAddr),
				)
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(unauthorizedMessage(err)))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), user)))
		})
	}
}

func userFromToken(validator *auth.JWTValidator, r *http.Request) (*auth.UserContext, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, auth.ErrInvalidToken
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return auth.NewUserContext(claims), nil
}

func userFromGatewayHeaders(r *http.Request) (*auth.UserContext, error) {
	user := &auth.UserContext{
		UserID: r.Header.Get(HeaderUserID),
		OrgID:  r.Header.Get(HeaderOrgID),
		Email:  r.Header.Get(HeaderUserEmail),
	}
	if user.UserID == "" || user.OrgID == "" {
		return nil, auth.ErrInvalidClaims
	}
	if roles := r.Header.Get(HeaderUserRoles); roles != "" {
		user.Roles = strings.Split(roles, ",")
	}
	return user, nil
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}
