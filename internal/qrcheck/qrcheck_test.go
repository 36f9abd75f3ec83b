package qrcheck

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/config"
	"payskill/internal/phone"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const designated = "9842470497"

var ist = time.FixedZone("IST", 5*60*60+30*60)

func newChecker(t *testing.T, secret string) *Checker {
	t.Helper()
	c, err := NewChecker(config.QRConfig{Arg: "far99-task2", Secret: secret}, designated, ist)
	require.NoError(t, err)
	return c
}

func TestChecker_Issue(t *testing.T) {
	c := newChecker(t, "")
	now := time.Date(2025, 3, 1, 10, 20, 0, 0, ist)

	link, err := c.Issue("+91 98424 70497", now)
	require.NoError(t, err)
	assert.Equal(t, "far99-task2", link.Arg)
	assert.Equal(t, now.Unix(), link.Ep)
	assert.Empty(t, link.Code)

	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/check", u.Path)
	assert.Equal(t, strconv.FormatInt(now.Unix(), 10), u.Query().Get("ep"))

	_, err = c.Issue("1234567890", now)
	assert.ErrorIs(t, err, ErrNotDesignated)
	assert.Equal(t, 403, apperr.HTTPStatus(err))

	_, err = c.Issue("98424", now)
	assert.ErrorIs(t, err, phone.ErrInvalid)
}

func TestChecker_Verify(t *testing.T) {
	c := newChecker(t, "")
	now := time.Date(2025, 3, 1, 10, 20, 0, 0, ist)
	hourStart := time.Date(2025, 3, 1, 10, 0, 0, 0, ist)

	tests := []struct {
		name   string
		arg    string
		ep     string
		reason string
	}{
		{"seconds in hour", "far99-task2", strconv.FormatInt(now.Unix(), 10), ""},
		{"millis in hour", "far99-task2", strconv.FormatInt(now.UnixMilli(), 10), ""},
		{"start of hour", "far99-task2", strconv.FormatInt(hourStart.Unix(), 10), ""},
		{"last ms of hour", "far99-task2", strconv.FormatInt(hourStart.Add(time.Hour-time.Millisecond).UnixMilli(), 10), ""},
		{"next hour", "far99-task2", strconv.FormatInt(hourStart.Add(time.Hour).Unix(), 10), ReasonExpired},
		{"previous hour", "far99-task2", strconv.FormatInt(hourStart.Add(-time.Second).Unix(), 10), ReasonExpired},
		{"wrong arg", "far99-task3", strconv.FormatInt(now.Unix(), 10), ReasonInvalidArg},
		{"non digits", "far99-task2", "17a", ReasonInvalidEpoch},
		{"negative", "far99-task2", "-5", ReasonInvalidEpoch},
		{"empty", "far99-task2", "", ReasonInvalidEpoch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Verify(tt.arg, tt.ep, "", now)
			assert.Equal(t, tt.reason == "", v.Valid)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestChecker_SignedLinks(t *testing.T) {
	secret, err := GenerateSecret(designated)
	require.NoError(t, err)
	c := newChecker(t, secret)

	issuedAt := time.Date(2025, 3, 1, 10, 5, 0, 0, ist)
	link, err := c.Issue(designated, issuedAt)
	require.NoError(t, err)
	require.Len(t, link.Code, 6)

	ep := strconv.FormatInt(link.Ep, 10)
	later := issuedAt.Add(20 * time.Minute)
	assert.True(t, c.Verify(link.Arg, ep, link.Code, later).Valid)

	v := c.Verify(link.Arg, ep, "", later)
	assert.Equal(t, ReasonInvalidCode, v.Reason)

	wrong := "000000"
	if link.Code == wrong {
		wrong = "111111"
	}
	assert.Equal(t, ReasonInvalidCode, c.Verify(link.Arg, ep, wrong, later).Reason)
}

func TestNewChecker_BadSecret(t *testing.T) {
	_, err := NewChecker(config.QRConfig{Arg: "far99-task2", Secret: "not base32!"}, designated, ist)
	assert.Error(t, err)
}

func TestParseEpoch(t *testing.T) {
	at, ok := ParseEpoch("1700000000")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), at.Unix())

	at, ok = ParseEpoch("1700000000123")
	require.True(t, ok)
	assert.Equal(t, int64(1700000000123), at.UnixMilli())

	_, ok = ParseEpoch("99999999999999999999")
	assert.False(t, ok)
}
