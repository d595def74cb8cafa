package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/mxkwnz/Mangekyo-Films/internal/model"
	"github.com/mxkwnz/Mangekyo-Films/internal/queue"
	"github.com/mxkwnz/Mangekyo-Films/internal/repository"
	"github.com/mxkwnz/Mangekyo-Films/internal/reservation"
)

type stubEngine struct {
	reserve func(sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error)
	cancel  func(bookingID uint64, by reservation.Actor) (*model.Booking, error)

	mu            sync.Mutex
	cancels       []reservation.Actor
	cancelCtxErrs []error // ctx.Err() observed at each Cancel call
}

func (s *stubEngine) Reserve(_ context.Context, sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error) {
	return s.reserve(sessionID, row, seat, holderID)
}

func (s *stubEngine) Cancel(ctx context.Context, bookingID uint64, by reservation.Actor) (*model.Booking, error) {
	s.mu.Lock()
	s.cancels = append(s.cancels, by)
	s.cancelCtxErrs = append(s.cancelCtxErrs, ctx.Err())
	s.mu.Unlock()
	return s.cancel(bookingID, by)
}

func (s *stubEngine) OccupiedSeats(context.Context, uint64) ([]model.SeatRef, error) {
	return nil, nil
}

func (s *stubEngine) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}

type stubWallet struct {
	chargeErr error

	mu      sync.Mutex
	charges []uint64
	refunds []uint64 // user ids refunded
}

func (s *stubWallet) ChargeBooking(_ context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chargeErr != nil {
		return nil, s.chargeErr
	}
	s.charges = append(s.charges, bookingID)
	return &model.Payment{UserID: userID, BookingID: &bookingID, AmountCents: amount, Kind: model.PaymentCharge}, nil
}

func (s *stubWallet) RefundBooking(_ context.Context, userID, bookingID uint64, amount int64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds = append(s.refunds, userID)
	return &model.Payment{UserID: userID, BookingID: &bookingID, AmountCents: amount, Kind: model.PaymentRefund}, nil
}

func (s *stubWallet) chargeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.charges)
}

type stubSessions struct{ sessions map[uint64]*model.Session }

func (s *stubSessions) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return nil, repository.ErrSessionNotFound
}

type stubHalls struct{ halls map[uint64]*model.Hall }

func (s *stubHalls) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	if h, ok := s.halls[id]; ok {
		return h, nil
	}
	return nil, repository.ErrHallNotFound
}

type recordingEvents struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	cancelled []queue.BookingCancelledEvent
}

func (r *recordingEvents) BookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, ev)
	return nil
}

func (r *recordingEvents) BookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, ev)
	return nil
}

func (r *recordingEvents) confirmedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.confirmed)
}

func (r *recordingEvents) cancelledCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancelled)
}

func newBookingFixture(engine *stubEngine, wallet *stubWallet) (*BookingHandler, *recordingEvents) {
	events := &recordingEvents{}
	h := &BookingHandler{
		Engine: engine,
		Wallet: wallet,
		Sessions: &stubSessions{sessions: map[uint64]*model.Session{
			10: {ID: 10, HallID: 1, Title: "Blade Runner", StartsAt: time.Now().Add(time.Hour), PriceCents: 1500},
		}},
		Halls: &stubHalls{halls: map[uint64]*model.Hall{
			1: {ID: 1, Name: "Main Hall", TotalRows: 5, SeatsPerRow: 8},
		}},
		Events: events,
	}
	return h, events
}

func bookRequest(h *BookingHandler, userID uint64, role, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/10/book", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/book")
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", userID)
	c.Set("role", role)
	_ = h.Book(c)
	return rec
}

func cancelRequest(h *BookingHandler, bookingID string, userID uint64, role string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/bookings/"+bookingID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/bookings/:id")
	c.SetParamNames("id")
	c.SetParamValues(bookingID)
	c.Set("user_id", userID)
	c.Set("role", role)
	_ = h.Cancel(c)
	return rec
}

func TestBookCommitsAndCharges(t *testing.T) {
	engine := &stubEngine{
		reserve: func(sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error) {
			return &model.Booking{
				ID: 77, SessionID: sessionID, RowNo: row, SeatNo: seat,
				UserID: holderID, Status: model.BookingConfirmed, PriceCents: 1500,
			}, nil
		},
	}
	wallet := &stubWallet{}
	h, events := newBookingFixture(engine, wallet)

	rec := bookRequest(h, 42, model.RoleCustomer, `{"row":3,"seat":4}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":77`)
	assert.Equal(t, 1, wallet.chargeCount())
	assert.Eventually(t, func() bool { return events.confirmedCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBookErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		reserveErr error
		wantStatus int
	}{
		{"unknown session", repository.ErrSessionNotFound, http.StatusNotFound},
		{"out of bounds", reservation.ErrSeatOutOfBounds, http.StatusBadRequest},
		{"seat taken", reservation.ErrSeatTaken, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &stubEngine{
				reserve: func(uint64, uint32, uint32, uint64) (*model.Booking, error) {
					return nil, tc.reserveErr
				},
			}
			wallet := &stubWallet{}
			h, events := newBookingFixture(engine, wallet)

			rec := bookRequest(h, 42, model.RoleCustomer, `{"row":3,"seat":4}`)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Zero(t, wallet.chargeCount())
			assert.Zero(t, events.confirmedCount())
		})
	}
}

func TestBookInsufficientBalanceCompensates(t *testing.T) {
	engine := &stubEngine{
		reserve: func(sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error) {
			return &model.Booking{ID: 77, SessionID: sessionID, RowNo: row, SeatNo: seat,
				UserID: holderID, Status: model.BookingConfirmed, PriceCents: 1500}, nil
		},
		cancel: func(bookingID uint64, by reservation.Actor) (*model.Booking, error) {
			return &model.Booking{ID: bookingID, Status: model.BookingCancelled}, nil
		},
	}
	wallet := &stubWallet{chargeErr: repository.ErrInsufficientBalance}
	h, events := newBookingFixture(engine, wallet)

	rec := bookRequest(h, 42, model.RoleCustomer, `{"row":3,"seat":4}`)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	// The booking must be released so the seat frees up again.
	assert.Equal(t, 1, engine.cancelCount())
	assert.True(t, engine.cancels[0].Admin, "compensation runs as the system")
	assert.Zero(t, events.confirmedCount())
}

// TestBookCompensationSurvivesClientDisconnect covers the client that
// hangs up after the seat commits: the dead request context fails the
// charge, but the compensating cancel must still run on a live context
// of its own, or the unpaid booking stays CONFIRMED forever.
func TestBookCompensationSurvivesClientDisconnect(t *testing.T) {
	engine := &stubEngine{
		reserve: func(sessionID uint64, row, seat uint32, holderID uint64) (*model.Booking, error) {
			return &model.Booking{ID: 77, SessionID: sessionID, RowNo: row, SeatNo: seat,
				UserID: holderID, Status: model.BookingConfirmed, PriceCents: 1500}, nil
		},
		cancel: func(bookingID uint64, by reservation.Actor) (*model.Booking, error) {
			return &model.Booking{ID: bookingID, Status: model.BookingCancelled}, nil
		},
	}
	wallet := &stubWallet{chargeErr: context.Canceled}
	h, events := newBookingFixture(engine, wallet)

	reqCtx, disconnect := context.WithCancel(context.Background())
	disconnect()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/10/book", strings.NewReader(`{"row":3,"seat":4}`))
	req = req.WithContext(reqCtx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/sessions/:id/book")
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(42))
	c.Set("role", model.RoleCustomer)
	_ = h.Book(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, engine.cancelCount())
	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.True(t, engine.cancels[0].Admin, "compensation runs as the system")
	assert.NoError(t, engine.cancelCtxErrs[0], "compensation must not inherit the dead request context")
	assert.Zero(t, events.confirmedCount())
}

func TestCancelRefundsHolder(t *testing.T) {
	engine := &stubEngine{
		cancel: func(bookingID uint64, by reservation.Actor) (*model.Booking, error) {
			return &model.Booking{ID: bookingID, SessionID: 10, RowNo: 3, SeatNo: 4,
				UserID: 42, Status: model.BookingCancelled, PriceCents: 1500}, nil
		},
	}
	wallet := &stubWallet{}
	h, events := newBookingFixture(engine, wallet)

	// Admin cancels on behalf of user 42; the refund must go to 42.
	rec := cancelRequest(h, "77", 99, model.RoleAdmin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint64{42}, wallet.refunds)
	assert.Eventually(t, func() bool { return events.cancelledCount() == 1 }, time.Second, 10*time.Millisecond)
	events.mu.Lock()
	defer events.mu.Unlock()
	assert.True(t, events.cancelled[0].ByAdmin)
}

func TestCancelErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		cancelErr  error
		wantStatus int
	}{
		{"unknown booking", repository.ErrBookingNotFound, http.StatusNotFound},
		{"not the holder", reservation.ErrForbidden, http.StatusForbidden},
		{"already cancelled", reservation.ErrAlreadyCancelled, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := &stubEngine{
				cancel: func(uint64, reservation.Actor) (*model.Booking, error) {
					return nil, tc.cancelErr
				},
			}
			wallet := &stubWallet{}
			h, _ := newBookingFixture(engine, wallet)

			rec := cancelRequest(h, "77", 42, model.RoleCustomer)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Empty(t, wallet.refunds)
		})
	}
}
