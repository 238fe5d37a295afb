package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
)

type Handlers struct {
	Rooms    *app.RoomService
	Guests   *app.GuestService
	Pricing  *app.PricingService
	Avail    *app.AvailabilityChecker
	Bookings *app.BookingService
	Payments *app.PaymentService
	Q        *app.QueryService
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(v chi.Router) {
		v.Get("/categories", h.listCategories)
		v.Post("/categories", h.createCategory)

		v.Route("/rooms", func(rt chi.Router) {
			rt.Get("/", h.listRooms)
			rt.Post("/", h.createRoom)
			rt.Get("/{id}", h.getRoom)
			rt.Delete("/{id}", h.deleteRoom)
			rt.Put("/{id}/available", h.setAvailable)
			rt.Get("/{id}/availability", h.checkAvailability)
			rt.Get("/{id}/quote", h.quote)
			rt.Get("/{id}/bookings", h.roomBookings)
			rt.Put("/{id}/price/base", h.setBasePrice)
			rt.Put("/{id}/price/seasonal", h.setSeasonalRate)
			rt.Put("/{id}/price/multiplier", h.setMultiplier)
		})

		v.Route("/guests", func(rt chi.Router) {
			rt.Get("/", h.listGuests)
			rt.Post("/", h.createGuest)
			rt.Get("/{id}", h.getGuest)
			rt.Get("/{id}/bookings", h.guestBookings)
		})

		v.Route("/bookings", func(rt chi.Router) {
			rt.Get("/", h.listBookings)
			rt.Post("/", h.createBooking)
			rt.Get("/count", h.countBookings)
			rt.Get("/{id}", h.getBooking)
			rt.Patch("/{id}", h.updateBooking)
			rt.Delete("/{id}", h.deleteBooking)
			rt.Put("/{id}/status", h.setBookingStatus)
			rt.Get("/{id}/payments", h.bookingPayments)
			rt.Get("/{id}/balance", h.bookingBalance)
		})

		v.Route("/payments", func(rt chi.Router) {
			rt.Get("/", h.listPayments)
			rt.Post("/", h.createPayment)
			rt.Get("/count", h.countPayments)
			rt.Get("/total-completed", h.totalCompleted)
			rt.Get("/transactions/{txn}", h.paymentByTxn)
			rt.Get("/{id}", h.getPayment)
			rt.Patch("/{id}", h.updatePayment)
			rt.Delete("/{id}", h.deletePayment)
			rt.Post("/{id}/process", h.processPayment)
			rt.Post("/{id}/refund", h.refundPayment)
			rt.Put("/{id}/status", h.setPaymentStatus)
		})
	})
}

// ---- categories & rooms ----

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Rooms.ListCategories(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(cs, toCategory))
}

func (h *Handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	c, err := h.Rooms.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(c))
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	cat, err := int64Query(r, "category_id")
	if err != nil {
		writeErr(w, err)
		return
	}
	q := domain.RoomsQuery{AvailableOnly: r.URL.Query().Get("available") == "true", CategoryID: cat, Page: pg}
	out, err := h.Rooms.ListRooms(r.Context(), q)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(out, toRoom))
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	rm, err := h.Rooms.CreateRoom(r.Context(), app.RoomInput{
		Number:       req.Number,
		BasePrice:    req.BasePrice,
		CategoryID:   req.CategoryID,
		Available:    req.Available,
		SeasonalRate: req.SeasonalRate,
		Multiplier:   req.Multiplier,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoom(rm))
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	rm, err := h.Q.GetRoom(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCached(w, r, toRoom(rm))
}

func (h *Handlers) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Rooms.DeleteRoom(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setAvailable(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req availabilityReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	rm, err := h.Rooms.SetAvailability(r.Context(), id, *req.Available)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoom(rm))
}

// stayParams reads the required check_in/check_out query pair.
func stayParams(r *http.Request) (domain.Booking, error) {
	in, err := parseDate("check_in", r.URL.Query().Get("check_in"))
	if err != nil {
		return domain.Booking{}, err
	}
	out, err := parseDate("check_out", r.URL.Query().Get("check_out"))
	if err != nil {
		return domain.Booking{}, err
	}
	return domain.Booking{CheckIn: in, CheckOut: out}, nil
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	stay, err := stayParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if _, err := h.Q.GetRoom(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	cs, err := h.Avail.ConflictingBookings(r.Context(), id, stay.CheckIn, stay.CheckOut)
	if err != nil {
		writeErr(w, err)
		return
	}
	ids := make([]int64, 0, len(cs))
	for _, b := range cs {
		ids = append(ids, b.ID)
	}
	writeJSON(w, http.StatusOK, availabilityResp{
		RoomID:    id,
		CheckIn:   r.URL.Query().Get("check_in"),
		CheckOut:  r.URL.Query().Get("check_out"),
		Available: len(ids) == 0,
		Conflicts: ids,
	})
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	stay, err := stayParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	q, err := h.Q.Quote(r.Context(), id, stay.CheckIn, stay.CheckOut)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuote(q))
}

func (h *Handlers) roomBookings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	bs, err := h.Bookings.BookingsByRoom(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(bs, toBooking))
}

func (h *Handlers) setBasePrice(w http.ResponseWriter, r *http.Request) {
	var req basePriceReq
	h.pricingUpdate(w, r, &req, func(id int64) (domain.Room, error) {
		return h.Pricing.SetBasePrice(r.Context(), id, req.BasePrice)
	})
}

func (h *Handlers) setSeasonalRate(w http.ResponseWriter, r *http.Request) {
	var req seasonalRateReq
	h.pricingUpdate(w, r, &req, func(id int64) (domain.Room, error) {
		return h.Pricing.ApplySeasonalRate(r.Context(), id, req.SeasonalRate)
	})
}

func (h *Handlers) setMultiplier(w http.ResponseWriter, r *http.Request) {
	var req multiplierReq
	h.pricingUpdate(w, r, &req, func(id int64) (domain.Room, error) {
		return h.Pricing.ApplyDynamicMultiplier(r.Context(), id, req.Multiplier)
	})
}

func (h *Handlers) pricingUpdate(w http.ResponseWriter, r *http.Request, req any, apply func(int64) (domain.Room, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := decode(w, r, req); err != nil {
		writeErr(w, err)
		return
	}
	rm, err := apply(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoom(rm))
}

// ---- guests ----

func (h *Handlers) listGuests(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	out, err := h.Guests.ListGuests(r.Context(), pg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(out, toGuest))
}

func (h *Handlers) createGuest(w http.ResponseWriter, r *http.Request) {
	var req createGuestReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	g, err := h.Guests.Register(r.Context(), app.GuestInput{Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGuest(g))
}

func (h *Handlers) getGuest(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	g, err := h.Guests.GetGuest(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGuest(g))
}

func (h *Handlers) guestBookings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	bs, err := h.Bookings.BookingsByGuest(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(bs, toBooking))
}

// ---- bookings ----

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var f domain.BookingFilter
	if f.GuestID, err = int64Query(r, "guest_id"); err != nil {
		writeErr(w, err)
		return
	}
	if f.RoomID, err = int64Query(r, "room_id"); err != nil {
		writeErr(w, err)
		return
	}
	if f.From, err = dateQuery(r, "from"); err != nil {
		writeErr(w, err)
		return
	}
	if f.To, err = dateQuery(r, "to"); err != nil {
		writeErr(w, err)
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := domain.ParseBookingStatus(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		f.Status = &st
	}
	out, err := h.Bookings.ListBookings(r.Context(), f, pg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(out, toBooking))
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	in, err := parseDate("check_in", req.CheckIn)
	if err != nil {
		writeErr(w, err)
		return
	}
	out, err := parseDate("check_out", req.CheckOut)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := h.Bookings.CreateBooking(r.Context(), app.BookingInput{
		RoomID:         req.RoomID,
		GuestID:        req.GuestID,
		CheckIn:        in,
		CheckOut:       out,
		Guests:         req.Guests,
		SpecialRequest: req.SpecialRequest,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBooking(b))
}

func (h *Handlers) countBookings(w http.ResponseWriter, r *http.Request) {
	st, err := domain.ParseBookingStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := h.Bookings.CountByStatus(r.Context(), st)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Status: string(st), Count: n})
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := h.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBooking(b))
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req patchBookingReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	p := app.BookingPatch{RoomID: req.RoomID, GuestID: req.GuestID, Guests: req.Guests, SpecialRequest: req.SpecialRequest}
	if req.CheckIn != nil {
		t, err := parseDate("check_in", *req.CheckIn)
		if err != nil {
			writeErr(w, err)
			return
		}
		p.CheckIn = &t
	}
	if req.CheckOut != nil {
		t, err := parseDate("check_out", *req.CheckOut)
		if err != nil {
			writeErr(w, err)
			return
		}
		p.CheckOut = &t
	}
	if req.Status != nil {
		st, err := domain.ParseBookingStatus(*req.Status)
		if err != nil {
			writeErr(w, err)
			return
		}
		p.Status = &st
	}
	b, err := h.Bookings.UpdateBooking(r.Context(), id, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBooking(b))
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Bookings.DeleteBooking(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req statusReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	st, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := h.Bookings.UpdateStatus(r.Context(), id, st)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBooking(b))
}

func (h *Handlers) bookingPayments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	ps, err := h.Payments.PaymentsByBooking(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(ps, toPayment))
}

func (h *Handlers) bookingBalance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	b, err := h.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	paid, err := h.Payments.TotalPaidForBooking(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResp{
		BookingID:   id,
		Total:       money(b.TotalAmount),
		Paid:        money(paid),
		Outstanding: money(b.TotalAmount.Sub(paid)),
	})
}

// ---- payments ----

func (h *Handlers) listPayments(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var f domain.PaymentFilter
	if f.BookingID, err = int64Query(r, "booking_id"); err != nil {
		writeErr(w, err)
		return
	}
	if f.From, err = timeQuery(r, "from"); err != nil {
		writeErr(w, err)
		return
	}
	if f.To, err = timeQuery(r, "to"); err != nil {
		writeErr(w, err)
		return
	}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := domain.ParsePaymentStatus(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		f.Status = &st
	}
	if s := r.URL.Query().Get("method"); s != "" {
		m, err := domain.ParsePaymentMethod(s)
		if err != nil {
			writeErr(w, err)
			return
		}
		f.Method = &m
	}
	out, err := h.Payments.ListPayments(r.Context(), f, pg)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(out, toPayment))
}

func (h *Handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	m, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.Payments.CreatePayment(r.Context(), app.PaymentInput{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Method:        m,
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Notes:         req.Notes,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayment(p))
}

func (h *Handlers) countPayments(w http.ResponseWriter, r *http.Request) {
	st, err := domain.ParsePaymentStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := h.Payments.CountByStatus(r.Context(), st)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResp{Status: string(st), Count: n})
}

func (h *Handlers) totalCompleted(w http.ResponseWriter, r *http.Request) {
	total, err := h.Payments.TotalCompleted(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total_completed": money(total)})
}

func (h *Handlers) paymentByTxn(w http.ResponseWriter, r *http.Request) {
	txn := strings.TrimSpace(chi.URLParam(r, "txn"))
	p, err := h.Payments.GetByTransactionID(r.Context(), txn)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

func (h *Handlers) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.Payments.GetPayment(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

func (h *Handlers) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req patchPaymentReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	p := app.PaymentPatch{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		Reference:     req.Reference,
		Notes:         req.Notes,
	}
	if req.Method != nil {
		m, err := domain.ParsePaymentMethod(*req.Method)
		if err != nil {
			writeErr(w, err)
			return
		}
		p.Method = &m
	}
	if req.Status != nil {
		st, err := domain.ParsePaymentStatus(*req.Status)
		if err != nil {
			writeErr(w, err)
			return
		}
		p.Status = &st
	}
	out, err := h.Payments.UpdatePayment(r.Context(), id, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(out))
}

func (h *Handlers) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Payments.DeletePayment(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) processPayment(w http.ResponseWriter, r *http.Request) {
	h.paymentAction(w, r, h.Payments.Process)
}

func (h *Handlers) refundPayment(w http.ResponseWriter, r *http.Request) {
	h.paymentAction(w, r, h.Payments.Refund)
}

func (h *Handlers) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	st, err := domain.ParsePaymentStatus(req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.paymentAction(w, r, func(ctx context.Context, id int64) (domain.Payment, error) {
		return h.Payments.UpdateStatus(ctx, id, st)
	})
}

func (h *Handlers) paymentAction(w http.ResponseWriter, r *http.Request, act func(context.Context, int64) (domain.Payment, error)) {
	id, err := idParam(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	p, err := act(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}
