package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mxkwnz/Mangekyo-Films/internal/service"
)

// WalletHandler exposes the customer's balance, top-ups and the
// payment ledger.
type WalletHandler struct {
	Wallet *service.Wallet
}

func NewWalletHandler(w *service.Wallet) *WalletHandler {
	return &WalletHandler{Wallet: w}
}

type topupReq struct {
	AmountCents int64 `json:"amount_cents"`
}

// Balance returns the caller's current balance.
func (h *WalletHandler) Balance(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	balance, err := h.Wallet.Balance(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Errorf("balance for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"balance_cents": balance})
}

// TopUp credits the caller's wallet and returns the ledger entry.
func (h *WalletHandler) TopUp(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req topupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.AmountCents <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount_cents must be positive"})
	}
	payment, err := h.Wallet.TopUp(c.Request().Context(), uid, req.AmountCents)
	if err != nil {
		c.Logger().Errorf("topup for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "topup failed"})
	}
	return c.JSON(http.StatusCreated, payment)
}

// History returns the caller's ledger entries, newest first.
func (h *WalletHandler) History(c echo.Context) error {
	uid := currentUserID(c)
	if uid == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payments, err := h.Wallet.History(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Errorf("payment history for user %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
