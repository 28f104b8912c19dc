package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
)

// Claims is the bearer token issued by the clinic's auth service. Subject is
// the patient, doctor or admin id; Role says which.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errUnauthenticated = errors.New("missing or invalid bearer token")

// Authenticate turns an HMAC-signed bearer token into an actor.Actor on the
// request context. Requests without a valid token are rejected.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, errUnauthenticated.Error())
				return
			}

			who, err := ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, who)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken validates tokenString and returns the actor it names.
func ParseToken(secret, tokenString string) (actor.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return actor.Actor{}, errUnauthenticated
	}

	role, err := actor.ParseRole(claims.Role)
	if err != nil {
		return actor.Actor{}, fmt.Errorf("%w: %v", errUnauthenticated, err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return actor.Actor{}, fmt.Errorf("%w: subject is not a valid id", errUnauthenticated)
	}
	return actor.Actor{Role: role, ID: id}, nil
}

// IssueToken signs a token for who. The auth service owns real sign-in; this
// is for local tooling and tests sharing the same secret.
func IssueToken(secret string, who actor.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(who.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (actor.Actor, bool) {
	who, ok := ctx.Value(actorKey).(actor.Actor)
	return who, ok
}
