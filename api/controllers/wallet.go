package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/berryevents69/Berry-Events-sub000/api/responses"
	"github.com/berryevents69/Berry-Events-sub000/api/validators"
	"github.com/berryevents69/Berry-Events-sub000/internal/wallet"
	"github.com/berryevents69/Berry-Events-sub000/pkg/db/models"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
	"github.com/berryevents69/Berry-Events-sub000/pkg/pagination"
)

type walletAccounts interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs wallet.Refs) (*models.WalletTransaction, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs wallet.Refs) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*wallet.TransactionPage, error)
	UpdateAutoReload(ctx context.Context, userID uuid.UUID, settings wallet.AutoReloadSettings) (*models.Wallet, error)
}

type walletMovementRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"gt=0,money"`
	Description     string          `json:"description,omitempty" validate:"max=255"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty" validate:"max=128"`
}

type autoReloadRequest struct {
	Enabled   bool             `json:"enabled"`
	Threshold *decimal.Decimal `json:"threshold,omitempty" validate:"omitempty,gte=0,money"`
	Amount    *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,gt=0,money"`
}

type walletTransactionsResponse struct {
	Items  []walletTransactionResponse `json:"items"`
	Cursor string                      `json:"cursor,omitempty"`
}

func WalletFetch(svc walletAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetOrCreate(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(record))
	}
}

func WalletTransactions(svc walletAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListTransactions(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]walletTransactionResponse, 0, len(page.Items))
		for i := range page.Items {
			items = append(items, newWalletTransactionResponse(&page.Items[i]))
		}
		responses.WriteSuccess(w, walletTransactionsResponse{Items: items, Cursor: page.Cursor})
	}
}

// WalletDeposit and WalletWithdraw resolve svc per request, so a router can be
// built before the wallet service exists.
func WalletDeposit(svc walletAccounts, logg *logger.Logger) http.HandlerFunc {
	return walletMovement(func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs wallet.Refs) (*models.WalletTransaction, error) {
		return svc.Deposit(ctx, userID, amount, refs)
	}, logg)
}

func WalletWithdraw(svc walletAccounts, logg *logger.Logger) http.HandlerFunc {
	return walletMovement(func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs wallet.Refs) (*models.WalletTransaction, error) {
		return svc.Withdraw(ctx, userID, amount, refs)
	}, logg)
}

type movementFunc func(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, refs wallet.Refs) (*models.WalletTransaction, error)

func walletMovement(move movementFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload walletMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refs := wallet.Refs{Description: validators.SanitizeString(payload.Description, 255)}
		if intent := strings.TrimSpace(payload.PaymentIntentID); intent != "" {
			refs.PaymentIntentID = &intent
		}
		txn, err := move(r.Context(), userID, payload.Amount, refs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTransactionResponse(txn))
	}
}

func WalletAutoReload(svc walletAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload autoReloadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.UpdateAutoReload(r.Context(), userID, wallet.AutoReloadSettings{
			Enabled:   payload.Enabled,
			Threshold: payload.Threshold,
			Amount:    payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletResponse(record))
	}
}
