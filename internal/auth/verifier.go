// Package auth verifies bearer tokens against the external OIDC
// identity provider and attaches the resulting identity to requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/cardfolio/cardfolio/internal/identity"
)

// Verification failure taxonomy. Strict middleware collapses all three
// to one observable 401; the distinction stays internal for logging.
var (
	// ErrMalformedHeader is returned when the Authorization value is not
	// of the form "Bearer <token>".
	ErrMalformedHeader = errors.New("malformed authorization header")
	// ErrInvalidToken is returned when the provider rejects the token
	// (bad signature, expired, wrong audience, empty subject).
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrProviderUnavailable is returned when the provider cannot be
	// reached within the verification timeout.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// IsCredentialError reports whether err belongs to the verification
// failure taxonomy (as opposed to a store or programming error).
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrProviderUnavailable)
}

// Verifier validates an Authorization header value and yields verified
// claims. Implementations must not have side effects.
type Verifier interface {
	Verify(ctx context.Context, authorization string) (identity.Claims, error)
}

// ParseBearer extracts the token from a "Bearer <token>" header value.
func ParseBearer(authorization string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", ErrMalformedHeader
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	if token == "" {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// OIDCVerifier verifies provider-signed ID tokens via OIDC discovery.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
	logger   *slog.Logger
}

// NewOIDCVerifier discovers the issuer's configuration and builds a
// verifier expecting the given audience. Each Verify call is bounded by
// timeout so a slow provider degrades to ErrProviderUnavailable instead
// of hanging the request.
func NewOIDCVerifier(ctx context.Context, log *slog.Logger, issuer, audience string, timeout time.Duration) (*OIDCVerifier, error) {
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("oidc verifier: issuer is required")
	}
	if strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("oidc verifier: audience is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
		timeout:  timeout,
		logger:   log.With(slog.String("component", "oidc_verifier")),
	}, nil
}

// Verify parses the bearer header, verifies the token with the provider,
// and maps the result onto the failure taxonomy. The subject claim must
// be non-empty for the result to count as verified.
func (v *OIDCVerifier) Verify(ctx context.Context, authorization string) (identity.Claims, error) {
	raw, err := ParseBearer(authorization)
	if err != nil {
		return identity.Claims{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		if isUnavailable(ctx, err) {
			return identity.Claims{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return identity.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if idToken.Subject == "" {
		return identity.Claims{}, fmt.Errorf("%w: empty subject claim", ErrInvalidToken)
	}

	var profile struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&profile); err != nil {
		return identity.Claims{}, fmt.Errorf("%w: decode claims: %v", ErrInvalidToken, err)
	}

	return identity.Claims{
		Subject:   idToken.Subject,
		Name:      profile.Name,
		Email:     profile.Email,
		AvatarURL: profile.Picture,
	}, nil
}

// isUnavailable distinguishes provider reachability problems (timeout,
// network failure while fetching keys) from token rejection.
func isUnavailable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
