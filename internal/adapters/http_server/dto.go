package httpserver

import (
	"time"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
)

// ---- requests ----

type createCategoryReq struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type createRoomReq struct {
	Number       string           `json:"number" validate:"required,max=20"`
	BasePrice    decimal.Decimal  `json:"base_price"`
	CategoryID   int64            `json:"category_id" validate:"required,gt=0"`
	Available    *bool            `json:"available"`
	SeasonalRate *decimal.Decimal `json:"seasonal_rate"`
	Multiplier   *decimal.Decimal `json:"multiplier"`
}

type availabilityReq struct {
	Available *bool `json:"available" validate:"required"`
}

type basePriceReq struct {
	BasePrice decimal.Decimal `json:"base_price"`
}

type seasonalRateReq struct {
	SeasonalRate decimal.Decimal `json:"seasonal_rate"`
}

type multiplierReq struct {
	Multiplier decimal.Decimal `json:"multiplier"`
}

type createGuestReq struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Email   string  `json:"email" validate:"required,email,max=100"`
	Phone   string  `json:"phone" validate:"required,max=20"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

type createBookingReq struct {
	RoomID         int64   `json:"room_id" validate:"required,gt=0"`
	GuestID        int64   `json:"guest_id" validate:"required,gt=0"`
	CheckIn        string  `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut       string  `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests         int     `json:"guests" validate:"gte=0"`
	SpecialRequest *string `json:"special_request" validate:"omitempty,max=1000"`
}

type patchBookingReq struct {
	RoomID         *int64  `json:"room_id" validate:"omitempty,gt=0"`
	GuestID        *int64  `json:"guest_id" validate:"omitempty,gt=0"`
	CheckIn        *string `json:"check_in" validate:"omitempty,datetime=2006-01-02"`
	CheckOut       *string `json:"check_out" validate:"omitempty,datetime=2006-01-02"`
	Guests         *int    `json:"guests" validate:"omitempty,gte=0"`
	SpecialRequest *string `json:"special_request" validate:"omitempty,max=1000"`
	Status         *string `json:"status"`
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
}

type createPaymentReq struct {
	BookingID     int64           `json:"booking_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method" validate:"required"`
	TransactionID string          `json:"transaction_id" validate:"max=64"`
	Reference     *string         `json:"reference" validate:"omitempty,max=100"`
	Notes         *string         `json:"notes" validate:"omitempty,max=1000"`
}

type patchPaymentReq struct {
	BookingID     *int64           `json:"booking_id" validate:"omitempty,gt=0"`
	Amount        *decimal.Decimal `json:"amount"`
	Method        *string          `json:"method"`
	Status        *string          `json:"status"`
	TransactionID *string          `json:"transaction_id" validate:"omitempty,max=64"`
	Reference     *string          `json:"reference" validate:"omitempty,max=100"`
	Notes         *string          `json:"notes" validate:"omitempty,max=1000"`
}

// ---- responses ----

type pageResp[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

func toPage[S, T any](p domain.Page[S], conv func(S) T) pageResp[T] {
	out := pageResp[T]{Items: make([]T, 0, len(p.Items)), NextCursor: p.NextCursor}
	for _, v := range p.Items {
		out.Items = append(out.Items, conv(v))
	}
	return out
}

func mapAll[S, T any](in []S, conv func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, conv(v))
	}
	return out
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func optDec(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

type categoryResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func toCategory(c domain.RoomCategory) categoryResp {
	return categoryResp{ID: c.ID, Name: c.Name, Description: c.Description}
}

type roomResp struct {
	ID              int64     `json:"id"`
	Number          string    `json:"number"`
	CategoryID      int64     `json:"category_id"`
	Available       bool      `json:"available"`
	BasePrice       string    `json:"base_price"`
	SeasonalRate    *string   `json:"seasonal_rate,omitempty"`
	Multiplier      *string   `json:"multiplier,omitempty"`
	CurrentPrice    string    `json:"current_price"`
	LastPriceUpdate time.Time `json:"last_price_update"`
}

func toRoom(r domain.Room) roomResp {
	return roomResp{
		ID:              r.ID,
		Number:          r.Number,
		CategoryID:      r.CategoryID,
		Available:       r.Available,
		BasePrice:       money(r.BasePrice),
		SeasonalRate:    optDec(r.SeasonalRate),
		Multiplier:      optDec(r.Multiplier),
		CurrentPrice:    money(app.CurrentPrice(r)),
		LastPriceUpdate: r.LastPriceUpdate,
	}
}

type guestResp struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      *string   `json:"address,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toGuest(g domain.Guest) guestResp {
	return guestResp{ID: g.ID, Name: g.Name, Email: g.Email, Phone: g.Phone, Address: g.Address, RegisteredAt: g.RegisteredAt}
}

type bookingResp struct {
	ID             int64     `json:"id"`
	RoomID         int64     `json:"room_id"`
	GuestID        int64     `json:"guest_id"`
	CheckIn        string    `json:"check_in"`
	CheckOut       string    `json:"check_out"`
	Nights         int       `json:"nights"`
	Guests         int       `json:"guests"`
	Status         string    `json:"status"`
	TotalAmount    string    `json:"total_amount"`
	SpecialRequest *string   `json:"special_request,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toBooking(b domain.Booking) bookingResp {
	return bookingResp{
		ID:             b.ID,
		RoomID:         b.RoomID,
		GuestID:        b.GuestID,
		CheckIn:        b.CheckIn.Format(time.DateOnly),
		CheckOut:       b.CheckOut.Format(time.DateOnly),
		Nights:         domain.Nights(b.CheckIn, b.CheckOut),
		Guests:         b.Guests,
		Status:         string(b.Status),
		TotalAmount:    money(b.TotalAmount),
		SpecialRequest: b.SpecialRequest,
		CreatedAt:      b.CreatedAt,
	}
}

type paymentResp struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"booking_id"`
	Amount        string    `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	PaidAt        time.Time `json:"paid_at"`
	Reference     *string   `json:"reference,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

func toPayment(p domain.Payment) paymentResp {
	return paymentResp{
		ID:            p.ID,
		BookingID:     p.BookingID,
		Amount:        money(p.Amount),
		Method:        string(p.Method),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		Reference:     p.Reference,
		Notes:         p.Notes,
	}
}

type quoteResp struct {
	RoomID       int64  `json:"room_id"`
	CheckIn      string `json:"check_in"`
	CheckOut     string `json:"check_out"`
	Nights       int    `json:"nights"`
	NightlyPrice string `json:"nightly_price"`
	Total        string `json:"total"`
}

func toQuote(q app.Quote) quoteResp {
	return quoteResp{
		RoomID:       q.RoomID,
		CheckIn:      q.CheckIn.Format(time.DateOnly),
		CheckOut:     q.CheckOut.Format(time.DateOnly),
		Nights:       q.Nights,
		NightlyPrice: money(q.NightlyPrice),
		Total:        money(q.Total),
	}
}

type availabilityResp struct {
	RoomID    int64   `json:"room_id"`
	CheckIn   string  `json:"check_in"`
	CheckOut  string  `json:"check_out"`
	Available bool    `json:"available"`
	Conflicts []int64 `json:"conflicting_booking_ids"`
}

type balanceResp struct {
	BookingID   int64  `json:"booking_id"`
	Total       string `json:"total"`
	Paid        string `json:"paid"`
	Outstanding string `json:"outstanding"`
}

type countResp struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}
