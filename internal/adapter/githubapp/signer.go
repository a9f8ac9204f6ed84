package githubapp

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// assertionLifetime is how long a signed app assertion stays valid. GitHub
// caps app JWTs at 10 minutes; the expiry claim is always issue time plus
// this duration.
const assertionLifetime = 600 * time.Second

// Configuration errors surfaced when the signer cannot be constructed.
var (
	ErrMissingAppID = errors.New("githubapp: app ID is required")
	ErrMissingKey   = errors.New("githubapp: private key is required")
)

// Signer produces short-lived signed assertions identifying the GitHub App.
// Assertions are never cached; callers request a fresh one for every
// authentication step to avoid expiry-window races.
type Signer struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewSigner parses the PEM-encoded RSA private key and returns a Signer.
// Returns a configuration error when the app ID or key is absent.
func NewSigner(appID int64, privateKeyPEM []byte) (*Signer, error) {
	if appID == 0 {
		return nil, ErrMissingAppID
	}
	if len(privateKeyPEM) == 0 {
		return nil, ErrMissingKey
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("githubapp: parse private key: %w", err)
	}

	return &Signer{
		appID: appID,
		key:   key,
		now:   time.Now,
	}, nil
}

// SetClock overrides the time source (for testing).
func (s *Signer) SetClock(now func() time.Time) {
	s.now = now
}

// Sign returns a freshly signed assertion valid for 600 seconds.
func (s *Signer) Sign() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"iss": s.appID,
		"iat": now.Unix(),
		"exp": now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("githubapp: sign assertion: %w", err)
	}

	return signed, nil
}

// parsePrivateKey decodes a PEM block and parses the RSA key, accepting
// both PKCS#1 (GitHub's download format) and PKCS#8 encodings.
func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}
