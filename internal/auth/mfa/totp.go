package mfa

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

const (
	// DefaultIssuer is encoded in provisioning URIs shown by authenticator apps.
	DefaultIssuer     = "Leadflow"
	defaultQRCodeSize = 256
)

// Enrollment is a freshly provisioned TOTP secret for the admin account.
type Enrollment struct {
	Secret string
	URL    string
	key    *otp.Key
}

// Generate provisions a new TOTP secret for the given account.
func Generate(issuer, account string) (*Enrollment, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, errors.New("totp: account is required")
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = DefaultIssuer
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}

	return &Enrollment{Secret: key.Secret(), URL: key.String(), key: key}, nil
}

// QRCode renders the provisioning URI as a PNG.
func (e *Enrollment) QRCode(size int) ([]byte, error) {
	if e == nil || e.key == nil {
		return nil, errors.New("totp: enrollment is required")
	}
	if size <= 0 {
		size = defaultQRCodeSize
	}
	return qrcode.Encode(e.key.String(), qrcode.Medium, size)
}

// TerminalQRCode renders the provisioning URI for display in a terminal.
func (e *Enrollment) TerminalQRCode() (string, error) {
	if e == nil || e.key == nil {
		return "", errors.New("totp: enrollment is required")
	}
	code, err := qrcode.New(e.key.String(), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("totp: build qr code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// Validate checks a submitted code against secret at the given instant, allowing one step of skew.
func Validate(code, secret string, at time.Time) bool {
	code = strings.TrimSpace(code)
	secret = strings.TrimSpace(secret)
	if code == "" || secret == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
