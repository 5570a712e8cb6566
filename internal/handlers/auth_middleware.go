package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal identifies the authenticated caller of a guarded endpoint.
type Principal struct {
	UserID   primitive.ObjectID
	Username string
}

type principalKey struct{}

// principalFrom retrieves the authenticated caller stored by requireAuth.
func principalFrom(r *http.Request) (Principal, bool) {
	p, ok := r.Context().Value(principalKey{}).(Principal)
	return p, ok
}

// requireAuth verifies the access token carried in the Authorization header
// or the accessToken cookie before the wrapped handler runs.
func requireAuth(tokens TokenManager, next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		token := accessTokenFrom(r)
		if token == "" {
			return unauthorized("authorization required")
		}

		claims, err := tokens.ParseAccess(token)
		if err != nil {
			return unauthorized("invalid or expired access token")
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			return unauthorized("invalid or expired access token")
		}

		ctx := context.WithValue(r.Context(), principalKey{}, Principal{
			UserID:   userID,
			Username: claims.Username,
		})
		return next(w, r.WithContext(ctx))
	}
}

func accessTokenFrom(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}

	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// mustPrincipal is used by handlers that are always registered behind
// requireAuth; a missing principal is a wiring bug surfaced as 401.
func mustPrincipal(r *http.Request) (Principal, error) {
	p, ok := principalFrom(r)
	if !ok {
		return Principal{}, unauthorized("authorization required")
	}
	return p, nil
}
