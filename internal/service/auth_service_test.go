package service

import (
	"github.com/restokit/restaurant-billing/internal/config"
	"github.com/restokit/restaurant-billing/internal/domain"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) TestLogin() {
	owner := s.newClient("ana@bistro.com").User

	user, token, err := s.auth.Login(s.ctx, "ANA@bistro.com", "secret123")
	s.Require().NoError(err)
	s.Equal(owner.ID, user.ID)
	s.NotEmpty(token.Token)

	actor, err := s.credentials.VerifyToken(token.Token)
	s.Require().NoError(err)
	s.Equal(owner.ID, actor.ID)
	s.Equal(domain.RoleUser, actor.Role)
}

func (s *ServiceSuite) TestLoginFailures() {
	owner := s.newClient("ana@bistro.com").User

	_, _, err := s.auth.Login(s.ctx, "ana@bistro.com", "wrong-password1")
	s.True(apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, _, err = s.auth.Login(s.ctx, "nobody@bistro.com", "secret123")
	s.True(apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = s.clients.DeactivateClient(s.ctx, s.admin, owner.ID)
	s.Require().NoError(err)
	_, _, err = s.auth.Login(s.ctx, "ana@bistro.com", "secret123")
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}

func (s *ServiceSuite) TestBootstrapAdminRunsOnce() {
	cfg := config.BootstrapConfig{AdminEmail: "Ops@Platform.com", AdminPassword: "bootstrap1", AdminName: "Ops"}

	created, err := s.auth.BootstrapAdmin(s.ctx, cfg)
	s.Require().NoError(err)
	s.True(created)

	created, err = s.auth.BootstrapAdmin(s.ctx, cfg)
	s.Require().NoError(err)
	s.False(created)

	user, _, err := s.auth.Login(s.ctx, "ops@platform.com", "bootstrap1")
	s.Require().NoError(err)
	s.True(user.IsAdmin())
}

func (s *ServiceSuite) TestBootstrapAdminSkippedWithoutConfig() {
	created, err := s.auth.BootstrapAdmin(s.ctx, config.BootstrapConfig{})
	s.Require().NoError(err)
	s.False(created)
}
