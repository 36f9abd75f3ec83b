package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"payskill/internal/apperr"
	"payskill/internal/config"
	"payskill/internal/logging"
	"payskill/internal/models"
	"payskill/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type GateSuite struct {
	suite.Suite
	users    *repotest.Users
	attempts *repotest.Attempts
	log      *AttemptLog
	gate     *Gate
}

func (s *GateSuite) SetupTest() {
	s.users = repotest.NewUsers()
	s.attempts = repotest.NewAttempts()
	s.log = NewAttemptLog(s.attempts)
	s.log.now = func() time.Time { return time.Date(2025, 3, 1, 18, 45, 7, 0, time.UTC) }
	s.gate = NewGate(s.users, s.log, config.Default().Auth, logging.Discard())
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) TestReferralMatrix() {
	tests := []struct {
		phone   string
		code    string
		success bool
	}{
		{"9842470497", "99", true},
		{"9842470497", " 99 ", true},
		{"9842470497", "far55", false},
		{"1234567890", "far55", true},
		{"1234567890", "FAR55", true},
		{"1234567890", "99", false},
		{"9998887776", "far55", true},
		{"+91 98424 70497", "99", true},
	}
	for _, tt := range tests {
		s.Run(tt.phone+"/"+tt.code, func() {
			res, err := s.gate.Authenticate(context.Background(), tt.phone, tt.code)
			if tt.success {
				s.Require().NoError(err)
				s.Equal(OutcomeSuccess, res.Outcome)
				s.Require().NotNil(res.User)
				s.Len(res.User.Phone, 10)
				return
			}
			s.ErrorIs(err, ErrInvalidReferral)
			s.Equal(OutcomeFailed, res.Outcome)
			s.Equal(models.ReasonInvalidReferer, res.Reason)
			s.Nil(res.User)
		})
	}
}

func (s *GateSuite) TestUnauthorizedPhones() {
	for _, code := range []string{"99", "far55", "", "anything"} {
		res, err := s.gate.Authenticate(context.Background(), "5555555555", code)
		s.ErrorIs(err, ErrUnauthorized)
		s.Equal(models.ReasonUnauthorizedPhone, res.Reason)
		s.Equal(401, apperr.HTTPStatus(err))
	}
	n, err := s.users.Count(context.Background())
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *GateSuite) TestInvalidPhone() {
	res, err := s.gate.Authenticate(context.Background(), "12345", "far55")
	s.ErrorIs(err, ErrInvalidPhone)
	s.Equal(models.ReasonInvalidPhone, res.Reason)
	s.Equal(400, apperr.HTTPStatus(err))

	all := s.attempts.All()
	s.Require().Len(all, 1)
	s.Equal("12345", all[0].Phone)
	s.Equal(models.AttemptFailed, all[0].Result)
}

func (s *GateSuite) TestMissingReferral() {
	res, err := s.gate.Authenticate(context.Background(), "1234567890", "  ")
	s.ErrorIs(err, ErrMissingReferral)
	s.Equal(OutcomeFailed, res.Outcome)
	s.Len(s.attempts.All(), 1)
}

func (s *GateSuite) TestLoginTimesGrowByOne() {
	ctx := context.Background()
	var previous []time.Time
	for i := 1; i <= 4; i++ {
		res, err := s.gate.Authenticate(ctx, "1234567890", "far55")
		s.Require().NoError(err)
		s.Require().Len(res.User.LoginTimes, i)
		if i > 1 {
			s.Equal(previous, res.User.LoginTimes[:i-1])
			s.True(res.User.LoginTimes[i-1].After(res.User.LoginTimes[i-2]))
		}
		previous = res.User.LoginTimes
	}
	n, err := s.users.Count(ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *GateSuite) TestOneAttemptPerCall() {
	ctx := context.Background()
	_, _ = s.gate.Authenticate(ctx, "1234567890", "far55")
	_, _ = s.gate.Authenticate(ctx, "1234567890", "99")
	_, _ = s.gate.Authenticate(ctx, "5555555555", "far55")
	_, _ = s.gate.Authenticate(ctx, "1234567890", "far55")

	all := s.attempts.All()
	s.Require().Len(all, 4)

	s.Equal(models.AttemptSuccess, all[0].Result)
	s.Nil(all[0].Reason)
	s.Equal("far55", all[0].Referer)
	s.Equal("2025-03-02 00:15:07", all[0].Timestamp)

	s.Equal(models.AttemptFailed, all[1].Result)
	s.Require().NotNil(all[1].Reason)
	s.Equal(models.ReasonInvalidReferer, *all[1].Reason)

	s.Require().NotNil(all[2].Reason)
	s.Equal(models.ReasonUnauthorizedPhone, *all[2].Reason)

	s.Equal(models.AttemptSuccess, all[3].Result)
}

func (s *GateSuite) TestPendingMode() {
	rules := config.Default().Auth
	rules.FailureMode = config.FailureModePending
	gate := NewGate(s.users, s.log, rules, logging.Discard())

	res, err := gate.Authenticate(context.Background(), "9842470497", "far55")
	s.NoError(err)
	s.Equal(OutcomePending, res.Outcome)
	s.Equal(models.ReasonInvalidReferer, res.Reason)

	res, err = gate.Authenticate(context.Background(), "5555555555", "far55")
	s.NoError(err)
	s.Equal(OutcomePending, res.Outcome)

	all := s.attempts.All()
	s.Require().Len(all, 2)
	s.Equal(models.AttemptPending, all[0].Result)
	s.Equal(models.ReasonInvalidReferer, *all[0].Reason)
	s.Equal(models.ReasonUnauthorizedPhone, *all[1].Reason)

	res, err = gate.Authenticate(context.Background(), "9842470497", "99")
	s.NoError(err)
	s.Equal(OutcomeSuccess, res.Outcome)
}

func (s *GateSuite) TestStorageFailure() {
	s.users.Err = apperr.Storage("failed to record login", errors.New("server selection timeout"))

	res, err := s.gate.Authenticate(context.Background(), "1234567890", "far55")
	s.Equal(apperr.KindStorage, apperr.KindOf(err))
	s.Equal(models.ReasonNetworkError, res.Reason)

	all := s.attempts.All()
	s.Require().Len(all, 1)
	s.Equal(models.AttemptFailed, all[0].Result)
	s.Equal(models.ReasonNetworkError, *all[0].Reason)
}

func (s *GateSuite) TestAttemptLogFailureDoesNotChangeOutcome() {
	s.attempts.Err = errors.New("write concern error")
	res, err := s.gate.Authenticate(context.Background(), "1234567890", "far55")
	s.NoError(err)
	s.Equal(OutcomeSuccess, res.Outcome)
}

func TestAttemptLog_Record(t *testing.T) {
	ctx := context.Background()
	repo := repotest.NewAttempts()
	log := NewAttemptLog(repo)
	log.now = func() time.Time { return time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC) }

	id, err := log.Record(ctx, "9842470497", "99", "", "")
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	_, err = log.Record(ctx, "9842470497", "far55", models.AttemptFailed, models.ReasonInvalidReferer)
	require.NoError(t, err)

	all := repo.All()
	require.Len(t, all, 2)
	assert.Equal(t, models.AttemptPending, all[0].Result)
	assert.Nil(t, all[0].Reason)
	assert.Equal(t, "2025-02-01 01:30:00", all[0].Timestamp)
	assert.Equal(t, models.ReasonInvalidReferer, *all[1].Reason)

	tests := []struct {
		name    string
		phone   string
		referer string
		result  models.AttemptResult
		reason  models.AttemptReason
		want    error
	}{
		{"missing phone", "", "99", "", "", ErrMissingAttemptFields},
		{"missing referer", "9842470497", " ", "", "", ErrMissingAttemptFields},
		{"unknown result", "9842470497", "99", "maybe", "", ErrInvalidAttemptResult},
		{"unknown reason", "9842470497", "99", models.AttemptFailed, "timeout", ErrInvalidAttemptReason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := log.Record(ctx, tt.phone, tt.referer, tt.result, tt.reason)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Len(t, repo.All(), 2)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 12, 31, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-01 00:00:00", FormatTimestamp(ts))
}
