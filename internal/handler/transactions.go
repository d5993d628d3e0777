package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/Dan9191/fintrack/internal/service"
	"github.com/Dan9191/fintrack/internal/utils"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const (
	allTypes        = "all"
	customFrequency = "custom"
)

type addTransactionRequest struct {
	Date            string           `json:"date"`
	Title           string           `json:"title"`
	Amount          *decimal.Decimal `json:"amount"`
	TransactionType string           `json:"transactionType"`
	Category        string           `json:"category"`
	UserID          string           `json:"userId"`
}

// updateTransactionRequest distinguishes absent fields (nil) from zero values.
type updateTransactionRequest struct {
	Title           *string          `json:"title"`
	Amount          *decimal.Decimal `json:"amount"`
	Date            *string          `json:"date"`
	Category        *string          `json:"category"`
	TransactionType *string          `json:"transactionType"`
	UserID          string           `json:"userId"`
}

type deleteTransactionRequest struct {
	UserID string `json:"userId"`
}

// AddTransaction creates a transaction for the authenticated user
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	in := models.NewTransaction{
		Title:           req.Title,
		Amount:          req.Amount,
		TransactionType: models.TransactionType(req.TransactionType),
		Category:        req.Category,
		UserID:          userID,
	}
	if req.Date != "" {
		date, err := models.ParseDate(req.Date)
		if err != nil {
			h.writeError(w, r, service.NewError(service.KindValidation, "Invalid date format, expected YYYY-MM-DD."))
			return
		}
		in.Date = date
	}

	t, err := h.svc.AddTransaction(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success":     true,
		"message":     "Transaction added successfully.",
		"transaction": t,
	})
}

// GetTransactions lists the user's transactions matching the query filters
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	transactions, err := h.svc.GetTransactions(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "transactions": transactions})
}

// GetSummary returns income, expense and per-category totals for the same filters as GetTransactions
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.svc.Summary(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if summary.ByCategory == nil {
		summary.ByCategory = []models.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "summary": summary})
}

// ExportStatement renders the filtered transactions as an XML statement
func (h *Handler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	transactions, err := h.svc.GetTransactions(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), filter.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body, err := utils.BuildStatement(user, transactions, h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="statement.xml"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// DeleteTransaction removes one of the user's transactions
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	var req deleteTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}

	userID, err := resolveUserID(r, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.DeleteTransaction(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Transaction deleted successfully."})
}

// UpdateTransaction applies the fields present in the body to a transaction
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req updateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	callerID, err := resolveUserID(r, req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	patch := models.TransactionPatch{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
	}
	if req.TransactionType != nil {
		typ := models.TransactionType(*req.TransactionType)
		patch.TransactionType = &typ
	}
	if req.Date != nil {
		date, err := models.ParseDate(*req.Date)
		if err != nil {
			h.writeError(w, r, service.NewError(service.KindValidation, "Invalid date format, expected YYYY-MM-DD."))
			return
		}
		patch.Date = &date
	}

	t, err := h.svc.UpdateTransaction(r.Context(), mux.Vars(r)["id"], callerID, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"message":     "Transaction updated successfully.",
		"transaction": t,
	})
}

// parseFilter turns the listing query parameters into a TransactionFilter.
// A numeric frequency wins over startDate/endDate; "custom" or no frequency
// falls through to the range, which applies only when both ends are given.
func parseFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()

	userID, err := resolveUserID(r, q.Get("userId"))
	if err != nil {
		return models.TransactionFilter{}, err
	}
	filter := models.TransactionFilter{UserID: userID}

	if typ := q.Get("type"); typ != "" && typ != allTypes {
		filter.Type = models.TransactionType(typ)
	}

	date, err := parseDateFilter(q)
	if err != nil {
		return models.TransactionFilter{}, service.NewError(service.KindValidation, err.Error())
	}
	filter.Date = date
	return filter, nil
}

func parseDateFilter(q url.Values) (models.DateFilter, error) {
	if freq := q.Get("frequency"); freq != "" && freq != customFrequency {
		days, err := strconv.Atoi(freq)
		if err != nil {
			return models.DateFilter{}, errInvalidFrequency
		}
		return models.DateFilter{Kind: models.RollingWindow, Days: days}, nil
	}

	startRaw, endRaw := q.Get("startDate"), q.Get("endDate")
	if startRaw == "" || endRaw == "" {
		return models.DateFilter{Kind: models.NoDateFilter}, nil
	}

	var start, end time.Time
	var err error
	if start, err = models.ParseDate(startRaw); err != nil {
		return models.DateFilter{}, err
	}
	if end, err = models.ParseDate(endRaw); err != nil {
		return models.DateFilter{}, err
	}
	return models.DateFilter{Kind: models.ExplicitRange, Start: start, End: end}, nil
}
