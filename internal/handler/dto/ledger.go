// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/model"
)

// TransactionRequest is the body of create and update requests.
type TransactionRequest struct {
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Description *string     `json:"description,omitempty"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Description *string     `json:"description"`
	UserID      string      `json:"user_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TransactionListResponse is one page of transactions.
type TransactionListResponse struct {
	Data       []TransactionResponse `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// Pagination echoes the effective page parameters.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// CreatedTransactionResponse is returned after a successful create.
type CreatedTransactionResponse struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SummaryResponse is the balance of a ledger.
type SummaryResponse struct {
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
	Balance json.Number `json:"balance"`
}

// CategoryTotalResponse is one row of a monthly report.
type CategoryTotalResponse struct {
	Category string      `json:"category"`
	Total    json.Number `json:"total"`
}

// CategoryResponse is a row of the category lookup table.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// RegisterRequest is the body of a registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// RegisterResponse carries the new user's ID, which is also their token.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// Amount renders a decimal with exactly two fractional digits.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// ToTransactionResponse converts a Transaction model to its DTO.
func ToTransactionResponse(tx *model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Kind),
		Category:    tx.Category,
		Amount:      Amount(tx.Amount),
		Date:        tx.Date.String(),
		Description: tx.Description,
		UserID:      tx.OwnerID,
		CreatedAt:   tx.CreatedAt,
	}
}

// ToTransactionListResponse converts a page of transactions.
func ToTransactionListResponse(txs []*model.Transaction, page, pageSize int) TransactionListResponse {
	data := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		data = append(data, ToTransactionResponse(tx))
	}
	return TransactionListResponse{
		Data:       data,
		Pagination: Pagination{Page: page, PageSize: pageSize},
	}
}

// ToSummaryResponse converts a Summary.
func ToSummaryResponse(s *model.Summary) SummaryResponse {
	return SummaryResponse{
		Income:  Amount(s.Income),
		Expense: Amount(s.Expense),
		Balance: Amount(s.Balance),
	}
}

// ToReportResponse converts report rows, keeping their order.
func ToReportResponse(totals []model.CategoryTotal) []CategoryTotalResponse {
	out := make([]CategoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		out = append(out, CategoryTotalResponse{Category: t.Category, Total: Amount(t.Total)})
	}
	return out
}

// ToCategoryResponses converts the category table.
func ToCategoryResponses(categories []*model.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Kind)})
	}
	return out
}
