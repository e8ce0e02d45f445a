package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hsu0403/hcast-backend/internal/logging"
	"github.com/hsu0403/hcast-backend/internal/store"
)

// TokenHeader is the primary header carrying the login token.
const TokenHeader = "x-jwt"

// UserLookup resolves the user behind a verified token.
type UserLookup interface {
	UserByID(ctx context.Context, id int64) (store.User, error)
}

// Middleware resolves the request actor from its token. Requests without a
// valid token continue anonymously; route guards decide whether that is
// acceptable.
func Middleware(tokens *Tokens, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID, err := tokens.Verify(token)
			if err != nil {
				logging.FromContext(ctx).Debug().Err(err).Msg("Ignoring invalid token")
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.UserByID(ctx, userID)
			if err != nil {
				logging.FromContext(ctx).Debug().Err(err).Int64("token_user_id", userID).Msg("Token user not resolved")
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithActor(ctx, &Actor{ID: user.ID, Role: user.Role})
			ctx = logging.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest reads the x-jwt header, falling back to a bearer token in
// the Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(TokenHeader)); token != "" {
		return token
	}
	return parseBearerToken(r.Header.Get("Authorization"))
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
