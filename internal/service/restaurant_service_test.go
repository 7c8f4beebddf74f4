package service

import (
	apperrors "github.com/restokit/restaurant-billing/pkg/util/errorutil"
)

func (s *ServiceSuite) TestOwnerEditsOwnRestaurant() {
	ana := s.newClient("ana@bistro.com")
	color := " #ff6600 "
	description := "Comida caseira"

	updated, err := s.restaurants.UpdateRestaurant(s.ctx, s.ownerActor(ana.User), ana.Restaurant.ID, UpdateRestaurantInput{
		Color:       &color,
		Description: &description,
	})
	s.Require().NoError(err)
	s.Equal("#ff6600", *updated.Color)

	got, err := s.restaurants.GetRestaurant(s.ctx, s.ownerActor(ana.User), ana.Restaurant.ID)
	s.Require().NoError(err)
	s.Equal("Comida caseira", *got.Description)
	s.Equal(ana.Restaurant.Name, got.Name)
}

func (s *ServiceSuite) TestOtherOwnersAndAdminsAreDenied() {
	ana := s.newClient("ana@bistro.com")
	bruno := s.newClient("bruno@cafe.com")
	name := "Hijacked"

	_, err := s.restaurants.UpdateRestaurant(s.ctx, s.ownerActor(bruno.User), ana.Restaurant.ID, UpdateRestaurantInput{Name: &name})
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = s.restaurants.GetRestaurant(s.ctx, s.admin, ana.Restaurant.ID)
	s.True(apperrors.HasCode(err, apperrors.CodeForbidden))

	stored, err := s.store.Restaurants().GetByID(s.ctx, ana.Restaurant.ID)
	s.Require().NoError(err)
	s.NotEqual("Hijacked", stored.Name)
}

func (s *ServiceSuite) TestUpdateRestaurantRejectsBlankName() {
	ana := s.newClient("ana@bistro.com")
	blank := "  "
	_, err := s.restaurants.UpdateRestaurant(s.ctx, s.ownerActor(ana.User), ana.Restaurant.ID, UpdateRestaurantInput{Name: &blank})
	s.True(apperrors.HasCode(err, apperrors.CodeValidation))
}
