package handlers

import (
	"time"

	"github.com/restokit/restaurant-billing/internal/api/dto"
	"github.com/restokit/restaurant-billing/internal/domain"
	"github.com/restokit/restaurant-billing/internal/service"
)

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func restaurantResponse(r *domain.Restaurant) dto.RestaurantResponse {
	return dto.RestaurantResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Phone:       r.Phone,
		Email:       r.Email,
		Color:       r.Color,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func optionalRestaurant(r *domain.Restaurant) *dto.RestaurantResponse {
	if r == nil {
		return nil
	}
	resp := restaurantResponse(r)
	return &resp
}

func paymentResponse(p *domain.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:             p.ID,
		ClientID:       p.ClientID,
		ClientName:     p.ClientName,
		ClientEmail:    p.ClientEmail,
		Amount:         p.Amount.StringFixed(2),
		DueDate:        p.DueDate.Format(time.DateOnly),
		Type:           string(p.Type),
		Status:         string(p.Status),
		Description:    p.Description,
		ReferenceMonth: p.ReferenceMonth,
		PaidDate:       p.PaidDate,
		ReceiptNumber:  p.ReceiptNumber,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.PaymentMethod != nil {
		method := string(*p.PaymentMethod)
		resp.PaymentMethod = &method
	}
	return resp
}

func paymentList(payments []domain.Payment) []dto.PaymentResponse {
	items := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, paymentResponse(&payments[i]))
	}
	return items
}

func clientSummaryResponse(summary *service.ClientSummary) dto.ClientSummaryResponse {
	resp := dto.ClientSummaryResponse{
		UserResponse: userResponse(&summary.User),
		Restaurant:   optionalRestaurant(summary.Restaurant),
	}
	if summary.NextPayment != nil {
		resp.NextPayment = &dto.NextPaymentResponse{
			PaymentResponse: paymentResponse(&summary.NextPayment.Payment),
			IsOverdue:       summary.NextPayment.IsOverdue,
		}
	}
	return resp
}

func statusTotal(total service.StatusTotal) dto.StatusTotalResponse {
	return dto.StatusTotalResponse{Count: total.Count, Total: total.Total.StringFixed(2)}
}

func paymentListing(listing *service.PaymentListing) dto.PaymentListResponse {
	items := make([]dto.PaymentListItem, 0, len(listing.Payments))
	for i := range listing.Payments {
		item := &listing.Payments[i]
		items = append(items, dto.PaymentListItem{
			PaymentResponse: paymentResponse(&item.Payment),
			Client: dto.ClientSnapshotResponse{
				ID:     item.Client.ID,
				Name:   item.Client.Name,
				Email:  item.Client.Email,
				Active: item.Client.Active,
			},
		})
	}
	return dto.PaymentListResponse{
		Payments: items,
		Summary: dto.PaymentSummaryResponse{
			Paid:    statusTotal(listing.Summary.Paid),
			Pending: statusTotal(listing.Summary.Pending),
			Overdue: statusTotal(listing.Summary.Overdue),
		},
	}
}
