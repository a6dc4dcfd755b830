package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/printly/printly-backend/api/responses"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
)

type rateLimiterStore interface {
	RateLimitKey(scope, id string) string
	IncrWithWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// TokenRateLimitPolicy throttles token issuance per client IP and per target
// phone so a caller cannot churn another customer's token.
type TokenRateLimitPolicy struct {
	window     time.Duration
	ipLimit    int
	phoneLimit int
}

// NewTokenRateLimitPolicy builds a policy with the supplied window and limits.
func NewTokenRateLimitPolicy(window time.Duration, ipLimit, phoneLimit int) TokenRateLimitPolicy {
	return TokenRateLimitPolicy{window: window, ipLimit: ipLimit, phoneLimit: phoneLimit}
}

func (p TokenRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.phoneLimit > 0)
}

// TokenRateLimit enforces the policy in front of the token issuance endpoint.
func TokenRateLimit(policy TokenRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					key := store.RateLimitKey("token:ip", ip)
					count, err := store.IncrWithWindow(ctx, key, policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if count > int64(policy.ipLimit) {
						rejectRateLimited(ctx, logg, w, "ip")
						return
					}
				}
			}

			if policy.phoneLimit > 0 {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if phone := extractPhone(body); phone != "" {
					key := store.RateLimitKey("token:phone", hashValue(phone))
					count, err := store.IncrWithWindow(ctx, key, policy.window)
					if err != nil {
						responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
						return
					}
					if count > int64(policy.phoneLimit) {
						rejectRateLimited(ctx, logg, w, "phone")
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, scope string) {
	if logg != nil {
		ctx = logg.WithField(ctx, "rate_limit_scope", scope)
		logg.Warn(ctx, "token issuance throttled")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many token requests").
		WithSuggestion("wait a minute and try again"))
}

func extractPhone(body []byte) string {
	var payload struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Phone)
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
