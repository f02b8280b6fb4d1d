package dto

import (
	"time"

	"shop-service/internal/models"
	"shop-service/internal/repository"

	"github.com/google/uuid"
)

type PaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	StatusCode  string    `json:"status_code,omitempty"`
	IsFinaly    bool      `json:"is_finaly"`
	RefID       string    `json:"ref_id,omitempty"`
	Authority   string    `json:"authority,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PaymentStatsResponse struct {
	TotalCount    int64 `json:"total_count"`
	SuccessCount  int64 `json:"success_count"`
	FailedCount   int64 `json:"failed_count"`
	PendingCount  int64 `json:"pending_count"`
	SuccessAmount int64 `json:"success_amount"`
}

type PaymentListResponse struct {
	Items []PaymentResponse    `json:"items"`
	Total int64                `json:"total"`
	Stats PaymentStatsResponse `json:"stats"`
}

type PaymentReportResponse struct {
	From  time.Time            `json:"from"`
	To    time.Time            `json:"to"`
	Stats PaymentStatsResponse `json:"stats"`
}

type BulkIDsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type BulkResponse struct {
	Affected int `json:"affected"`
}

// PaymentMessageResponse: страница результата оплаты
type PaymentMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Payment(p *models.Payment) PaymentResponse {
	out := PaymentResponse{
		ID:          p.ID,
		OrderID:     p.OrderID,
		CustomerID:  p.CustomerID,
		Amount:      p.Amount,
		Description: p.Description,
		Status:      string(p.Status),
		StatusCode:  p.StatusCode,
		IsFinaly:    p.IsFinaly,
		RefID:       p.RefID,
		Message:     p.Message,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Authority != nil {
		out.Authority = *p.Authority
	}
	return out
}

func PaymentStats(s repository.PaymentStats) PaymentStatsResponse {
	return PaymentStatsResponse{
		TotalCount:    s.TotalCount,
		SuccessCount:  s.SuccessCount,
		FailedCount:   s.FailedCount,
		PendingCount:  s.PendingCount,
		SuccessAmount: s.SuccessAmount,
	}
}

func Payments(list []*models.Payment, total int64, stats repository.PaymentStats) PaymentListResponse {
	out := PaymentListResponse{Items: make([]PaymentResponse, 0, len(list)), Total: total, Stats: PaymentStats(stats)}
	for _, p := range list {
		out.Items = append(out.Items, Payment(p))
	}
	return out
}
