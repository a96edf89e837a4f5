package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
	"github.com/reliefnet/reliefnet/internal/platform/requestctx"
	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
)

const minSecretLength = 32

// callerClaims is the bearer token payload: the registered subject plus the
// caller's role.
type callerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenVerifier validates HS256 bearer tokens issued by the identity service.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier creates a verifier. issuer may be empty to accept any
// issuer.
func NewTokenVerifier(secret, issuer string, now func() time.Time) (*TokenVerifier, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	if now == nil {
		now = time.Now
	}
	return &TokenVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), now: now}, nil
}

// Verify parses a bearer token into the calling actor.
func (v *TokenVerifier) Verify(raw string) (domain.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Actor{}, domain.ErrUnauthenticated
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	var claims callerClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return domain.Actor{}, mapJWTError(err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return domain.Actor{}, apperrors.New(apperrors.CodeUnauthenticated, "token subject is required")
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Actor{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "token role is not recognized", err)
	}
	return domain.Actor{Subject: subject, Role: role}, nil
}

// Sign issues a token for subject and role that expires after ttl. The
// relief API never issues tokens itself; Sign serves local tooling and
// tests.
func (v *TokenVerifier) Sign(subject string, role domain.Role, ttl time.Duration) (string, error) {
	now := v.now()
	claims := callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token alg is invalid", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token issuer mismatch", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnauthenticated, "token is invalid", err)
	}
}

// authenticate resolves the bearer token and stores the caller in the
// request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			h.writeError(w, r, domain.ErrUnauthenticated)
			return
		}
		actor, err := h.verifier.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ctx := requestctx.WithCaller(r.Context(), actor.Subject, string(actor.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the authenticated caller of r.
func actorFrom(r *http.Request) domain.Actor {
	subject, role, ok := requestctx.CallerFromContext(r.Context())
	if !ok {
		return domain.Actor{}
	}
	return domain.Actor{Subject: subject, Role: domain.Role(role)}
}
