package websocket

import (
	"allchat/domain"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

const (
	UserIDQueryParam = "userId"
	UserIDHeader     = "X-User-ID"
)

// IdentityResolver extracts the user identifier resolved by the upstream auth layer.
type IdentityResolver func(r *http.Request) (domain.UserID, error)

// QueryIdentity reads the userId query parameter, falling back to the X-User-ID header.
func QueryIdentity(r *http.Request) (domain.UserID, error) {
	userID := r.URL.Query().Get(UserIDQueryParam)
	if userID == "" {
		userID = r.Header.Get(UserIDHeader)
	}
	if err := domain.ValidateUserID(userID); err != nil {
		return "", err
	}
	return domain.UserID(userID), nil
}

// originChecker accepts requests without Origin (non browser clients),
// any origin when "*" is configured, otherwise an exact scheme://host match.
func originChecker(allowed []string) func(r *http.Request) bool {
	allowed = lo.FilterMap(allowed, func(o string, _ int) (string, bool) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		return strings.ToLower(o), o != ""
	})
	allowAll := len(allowed) == 0 || lo.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return lo.Contains(allowed, strings.ToLower(u.Scheme+"://"+u.Host))
	}
}
