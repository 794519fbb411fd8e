package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Reason explains why a credential was rejected.
type Reason string

const (
	ReasonMissing   Reason = "missing"
	ReasonMalformed Reason = "malformed"
	ReasonInvalid   Reason = "invalid"
)

// ErrNoPrincipal is returned by verifiers that got an answer without a user.
var ErrNoPrincipal = errors.New("identity service returned no user")

// Principal is the verified caller.
type Principal struct {
	ID    string
	Email string
}

// Verifier checks a bearer token against an identity service.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// Result is either a UserID or a Rejection with a Reason and message.
type Result struct {
	UserID    string
	Email     string
	Rejection *Rejection
}

type Rejection struct {
	Reason  Reason
	Message string
}

func (r Result) OK() bool { return r.Rejection == nil && r.UserID != "" }

// Authenticator resolves the caller of a request. It never caches.
type Authenticator struct {
	verifier Verifier
}

func NewAuthenticator(v Verifier) *Authenticator {
	return &Authenticator{verifier: v}
}

// Authenticate reads the authorization header (any case) and verifies its
// bearer token. It always returns a Result; errors become rejections.
func (a *Authenticator) Authenticate(ctx context.Context, headers http.Header) Result {
	value, ok := lookupHeader(headers, "authorization")
	if !ok || strings.TrimSpace(value) == "" {
		return reject(ReasonMissing, "Missing authentication token")
	}
	token, ok := bearerToken(value)
	if !ok {
		return reject(ReasonMalformed, "Malformed authentication token")
	}

	p, err := a.verifier.Verify(ctx, token)
	if err != nil {
		msg := "Invalid or expired token"
		var ve *VerifyError
		if errors.As(err, &ve) && ve.Message != "" {
			msg = ve.Message
		}
		return reject(ReasonInvalid, msg)
	}
	if strings.TrimSpace(p.ID) == "" {
		return reject(ReasonInvalid, "Invalid or expired token")
	}
	return Result{UserID: p.ID, Email: p.Email}
}

func reject(reason Reason, msg string) Result {
	return Result{Rejection: &Rejection{Reason: reason, Message: msg}}
}

// lookupHeader finds name case-insensitively, including keys that were set
// without canonicalization.
func lookupHeader(h http.Header, name string) (string, bool) {
	if v := h.Get(name); v != "" {
		return v, true
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

// bearerToken accepts "Bearer <token>" with any scheme case.
func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// VerifyError carries a message from the identity service that is safe to
// return to the caller.
type VerifyError struct {
	Status  int
	Message string
	Err     error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *VerifyError) Unwrap() error { return e.Err }
