package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RequireBuyer validates the identity provider's bearer token and seeds the
// request context with the buyer identity.
func RequireBuyer(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return buyerAuth(cfg, logg, true)
}

// OptionalBuyer authenticates when a token is present and lets guests through
// otherwise. A present but invalid token is still rejected.
func OptionalBuyer(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return buyerAuth(cfg, logg, false)
}

func buyerAuth(cfg config.JWTConfig, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				if required {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, err := validators.BearerToken(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseBuyerToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithBuyer(r.Context(), claims.BuyerID(), claims.Email)
			if logg != nil {
				ctx = logg.WithBuyerID(ctx, claims.BuyerID())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
