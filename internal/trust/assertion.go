package trust

import (
	"fmt"
	"strconv"
	"time"

	appErr "codecampus/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Header carries the trust assertion between internal services. Requests
// arriving on protected routes without it are rejected; it is trusted only
// on the internal network path behind the gateway.
const Header = "X-Internal-Auth"

const defaultAssertionTTL = 2 * time.Minute

// Assertion is the service-internal claim of caller identity, stamped by
// the gateway after authenticating the caller exactly once.
type Assertion struct {
	UserID int64
	Role   string
}

type assertionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer mints short-lived assertions under a service-internal secret,
// distinct from the edge access-token secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer creates an assertion issuer.
func NewIssuer(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("trust secret is required")
	}
	if ttl <= 0 {
		ttl = defaultAssertionTTL
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue mints an assertion token for the authenticated caller.
func (i *Issuer) Issue(userID int64, role string) (string, error) {
	if userID <= 0 {
		return "", appErr.ValidationError("user_id", "required")
	}
	if role == "" {
		return "", appErr.ValidationError("role", "required")
	}
	now := time.Now()
	claims := assertionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "sign trust assertion failed")
	}
	return signed, nil
}

// Verifier validates assertions on the receiving side.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates an assertion verifier.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("trust secret is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses and validates a raw assertion token. Absence and
// malformation are both non-retryable authorization failures; they are
// never silently defaulted.
func (v *Verifier) Verify(raw string) (Assertion, error) {
	if raw == "" {
		return Assertion{}, appErr.New(appErr.AssertionMissing)
	}
	parsed, err := jwt.ParseWithClaims(raw, &assertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Assertion{}, appErr.New(appErr.AssertionInvalid)
	}
	claims, ok := parsed.Claims.(*assertionClaims)
	if !ok {
		return Assertion{}, appErr.New(appErr.AssertionInvalid)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return Assertion{}, appErr.New(appErr.AssertionInvalid)
	}
	if claims.Role == "" {
		return Assertion{}, appErr.New(appErr.AssertionInvalid)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Assertion{}, appErr.New(appErr.AssertionInvalid)
	}
	return Assertion{UserID: userID, Role: claims.Role}, nil
}
