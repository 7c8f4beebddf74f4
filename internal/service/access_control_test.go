package service

import (
	"github.com/restokit/restaurant-billing/internal/domain"
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) TestCanAccessRestaurant() {
	ana := s.newClient("ana@bistro.com")
	bruno := s.newClient("bruno@cafe.com")

	ok, err := s.access.CanAccessRestaurant(s.ctx, ana.Restaurant.ID, ana.User.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.access.CanAccessRestaurant(s.ctx, ana.Restaurant.ID, bruno.User.ID)
	s.Require().NoError(err)
	s.False(ok, "foreign restaurant")

	ok, err = s.access.CanAccessRestaurant(s.ctx, "restaurant-404", ana.User.ID)
	s.Require().NoError(err)
	s.False(ok, "missing restaurant")

	ok, err = s.access.CanAccessRestaurant(s.ctx, ana.Restaurant.ID, s.admin.ID)
	s.Require().NoError(err)
	s.False(ok, "admin role does not grant ownership")
}

func (s *ServiceSuite) TestRequireRestaurantOwnerHidesExistence() {
	ana := s.newClient("ana@bistro.com")
	bruno := s.newClient("bruno@cafe.com")

	_, foreignErr := s.access.RequireRestaurantOwner(s.ctx, s.ownerActor(bruno.User), ana.Restaurant.ID)
	_, missingErr := s.access.RequireRestaurantOwner(s.ctx, s.ownerActor(bruno.User), "restaurant-404")

	s.True(apperrors.HasCode(foreignErr, apperrors.CodeForbidden))
	s.Equal(apperrors.ToDomainError(foreignErr).Message, apperrors.ToDomainError(missingErr).Message)
}

func (s *ServiceSuite) TestRequireAdmin() {
	s.NoError(s.access.RequireAdmin(s.admin))
	err := s.access.RequireAdmin(domain.Actor{ID: "user-9", Role: domain.RoleUser})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))
}
