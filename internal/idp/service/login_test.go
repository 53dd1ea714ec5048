package service

import (
	"time"

	dErrors "cohort/pkg/domain-errors"
)

func (s *ServiceSuite) TestLogin() {
	ctx := s.ctx()

	s.Run("valid credentials return the user", func() {
		user, err := s.svc.Login(ctx, "admin@example.com", testPassword)
		s.Require().NoError(err)
		s.Equal(testUserID, user.ID)
	})

	s.Run("identifier matching is case-insensitive", func() {
		user, err := s.svc.Login(ctx, "Admin@Example.COM", testPassword)
		s.Require().NoError(err)
		s.Equal(testUserID, user.ID)
	})

	s.Run("wrong password yields the generic credentials error", func() {
		_, err := s.svc.Login(ctx, "admin@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("invalid credentials", err.Error())
	})

	s.Run("unknown identifier yields the same generic error", func() {
		_, wrongPassword := s.svc.Login(ctx, "admin@example.com", "wrong")
		_, unknownUser := s.svc.Login(ctx, "nobody@example.com", testPassword)
		s.Require().Error(unknownUser)
		s.Equal(wrongPassword.Error(), unknownUser.Error())
		s.Equal(dErrors.GetCode(wrongPassword), dErrors.GetCode(unknownUser))
	})

	s.Run("empty inputs are rejected without a store lookup", func() {
		_, err := s.svc.Login(ctx, "", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestLoginLockout() {
	ctx := s.ctx()

	s.Run("threshold failures lock the account", func() {
		for i := 0; i < 3; i++ {
			_, err := s.svc.Login(ctx, "admin@example.com", "wrong")
			s.Require().Error(err)
		}
		// Correct password now fails too: the window is active.
		_, err := s.svc.Login(ctx, "admin@example.com", testPassword)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("lock expires after the window", func() {
		for i := 0; i < 3; i++ {
			_, _ = s.svc.Login(ctx, "admin@example.com", "wrong")
		}
		s.now = s.now.Add(16 * time.Minute)
		user, err := s.svc.Login(s.ctx(), "admin@example.com", testPassword)
		s.Require().NoError(err)
		s.Equal(testUserID, user.ID)
	})

	s.Run("successful login clears the failure counter", func() {
		_, _ = s.svc.Login(ctx, "admin@example.com", "wrong")
		_, _ = s.svc.Login(ctx, "admin@example.com", "wrong")
		_, err := s.svc.Login(ctx, "admin@example.com", testPassword)
		s.Require().NoError(err)
		// Two more failures stay under the threshold again.
		_, _ = s.svc.Login(ctx, "admin@example.com", "wrong")
		_, _ = s.svc.Login(ctx, "admin@example.com", "wrong")
		_, err = s.svc.Login(ctx, "admin@example.com", testPassword)
		s.Require().NoError(err)
	})
}
