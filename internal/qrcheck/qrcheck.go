// Package qrcheck issues and verifies the hour-scoped links that unlock the
// second task. The designated referrer shows the link as a QR code and the
// scanning user's client submits it back for verification.
package qrcheck

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/config"
	"payskill/internal/phone"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Verification failure reasons.
const (
	ReasonInvalidArg   = "invalid_arg"
	ReasonInvalidEpoch = "invalid_epoch"
	ReasonExpired      = "expired"
	ReasonInvalidCode  = "invalid_code"
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 1e12

// ErrNotDesignated is returned when a phone other than the referrer asks for a link.
var ErrNotDesignated = apperr.New(apperr.KindForbidden, apperr.CodeForbidden, "QR links are only available to the referrer")

var codeOpts = totp.ValidateOpts{
	Period:    3600,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Link is an issued check link.
type Link struct {
	Arg  string `json:"arg"`
	Ep   int64  `json:"ep"`
	Code string `json:"code,omitempty"`
	URL  string `json:"url"`
}

// Verdict is the outcome of verifying a link.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Checker issues and verifies links. Hour windows are evaluated in loc.
type Checker struct {
	arg             string
	secret          string
	designatedPhone string
	loc             *time.Location
}

// NewChecker creates a checker. A non-empty secret must be base32; links
// then carry an hourly code that Verify requires.
func NewChecker(cfg config.QRConfig, designatedPhone string, loc *time.Location) (*Checker, error) {
	if loc == nil {
		loc = time.Local
	}
	c := &Checker{
		arg:             cfg.Arg,
		secret:          strings.ToUpper(strings.TrimSpace(cfg.Secret)),
		designatedPhone: designatedPhone,
		loc:             loc,
	}
	if c.secret != "" {
		if _, err := totp.GenerateCodeCustom(c.secret, time.Now(), codeOpts); err != nil {
			return nil, fmt.Errorf("invalid QR secret: %w", err)
		}
	}
	return c, nil
}

// Issue creates a link for the designated phone at now.
func (c *Checker) Issue(rawPhone string, now time.Time) (*Link, error) {
	p, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	if p != c.designatedPhone {
		return nil, ErrNotDesignated
	}
	link := &Link{Arg: c.arg, Ep: now.Unix()}
	q := url.Values{}
	q.Set("arg", link.Arg)
	q.Set("ep", strconv.FormatInt(link.Ep, 10))
	if c.secret != "" {
		code, err := totp.GenerateCodeCustom(c.secret, now, codeOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate QR code: %w", err)
		}
		link.Code = code
		q.Set("code", code)
	}
	link.URL = "/check?" + q.Encode()
	return link, nil
}

// Verify checks arg, that ep falls inside the clock hour containing now
// and, when a secret is configured, the hourly code.
func (c *Checker) Verify(arg, ep, code string, now time.Time) Verdict {
	if arg != c.arg {
		return Verdict{Reason: ReasonInvalidArg}
	}
	at, ok := ParseEpoch(ep)
	if !ok {
		return Verdict{Reason: ReasonInvalidEpoch}
	}
	now = now.In(c.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, c.loc)
	end := start.Add(time.Hour)
	if at.Before(start) || !at.Before(end) {
		return Verdict{Reason: ReasonExpired}
	}
	if c.secret != "" {
		valid, err := totp.ValidateCustom(strings.TrimSpace(code), c.secret, at, codeOpts)
		if err != nil || !valid {
			return Verdict{Reason: ReasonInvalidCode}
		}
	}
	return Verdict{Valid: true}
}

// ParseEpoch reads an all-digit epoch in seconds, or in milliseconds when
// it has 13 or more digits or exceeds 1e12.
func ParseEpoch(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(raw) >= 13 || n > millisThreshold {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}

// GenerateSecret returns a new base32 secret for signing links.
func GenerateSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "PaySkill",
		AccountName: account,
		Period:      codeOpts.Period,
		Digits:      codeOpts.Digits,
		Algorithm:   codeOpts.Algorithm,
	})
	if err != nil {
		return "", fmt.Errorf("error generating QR secret: %w", err)
	}
	return key.Secret(), nil
}
