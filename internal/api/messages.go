package api

import (
	"time"

	"github.com/dmitrijs2005/commissions/internal/server/models"
	"github.com/dmitrijs2005/commissions/internal/server/services"
)

type Empty struct{}

type PingResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type ListTransactionsRequest struct {
	Limit int `json:"limit"`
}

type TransactionList struct {
	Transactions []*models.WalletTransaction `json:"transactions"`
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amountCents"`
	Note        string `json:"note"`
}

type TransferRequest struct {
	FromID      string `json:"fromId"`
	ToID        string `json:"toId"`
	AmountCents int64  `json:"amountCents"`
	Reason      string `json:"reason"`
}

type SetAdminRequest struct {
	UserID  string `json:"userId"`
	IsAdmin bool   `json:"isAdmin"`
}

type CreateContractRequest struct {
	Proposal models.Proposal `json:"proposal"`
	Payment  models.Payment  `json:"payment"`
}

type ContractRef struct {
	ContractID string `json:"contractId"`
}

type TicketRef struct {
	TicketID string `json:"ticketId"`
}

type ListContractsRequest struct {
	Statuses []models.ContractStatus `json:"statuses"`
}

type ContractList struct {
	Contracts []*models.Contract `json:"contracts"`
}

type ClaimResponse struct {
	ClaimedCents int64 `json:"claimedCents"`
}

type ExtendDeadlineRequest struct {
	ContractID    string    `json:"contractId"`
	NewDeadlineAt time.Time `json:"newDeadlineAt"`
}

type CreateUploadRequest struct {
	ContractID string               `json:"contractId"`
	Upload     services.UploadInput `json:"upload"`
}

type ReviewUploadRequest struct {
	Kind     models.UploadKind `json:"kind"`
	UploadID string            `json:"uploadId"`
	Accept   bool              `json:"accept"`
}

// ListUploadsRequest filters by kind, or by milestone when MilestoneIndex
// is set.
type ListUploadsRequest struct {
	ContractID     string            `json:"contractId"`
	Kind           models.UploadKind `json:"kind"`
	MilestoneIndex *int              `json:"milestoneIndex"`
}

type UploadList struct {
	Uploads []*models.Upload `json:"uploads"`
}

type CreateCancelTicketRequest struct {
	ContractID string `json:"contractId"`
	Reason     string `json:"reason"`
}

type CreateRevisionTicketRequest struct {
	ContractID string                 `json:"contractId"`
	Revision   services.RevisionInput `json:"revision"`
}

type CreateChangeTicketRequest struct {
	ContractID string               `json:"contractId"`
	Change     services.ChangeInput `json:"change"`
}

type RespondRequest struct {
	TicketID string `json:"ticketId"`
	Accept   bool   `json:"accept"`
	FeeCents int64  `json:"feeCents"`
}

type PayTicketRequest struct {
	TicketID string         `json:"ticketId"`
	Payment  models.Payment `json:"payment"`
}

type SubmitResolutionRequest struct {
	ContractID string                   `json:"contractId"`
	Resolution services.ResolutionInput `json:"resolution"`
}

type SubmitCounterproofRequest struct {
	TicketID     string                     `json:"ticketId"`
	Counterproof services.CounterproofInput `json:"counterproof"`
}

type ResolveDisputeRequest struct {
	TicketID string          `json:"ticketId"`
	Decision models.Decision `json:"decision"`
	Note     string          `json:"note"`
}

type ResolutionList struct {
	Resolutions []*models.ResolutionTicket `json:"resolutions"`
}

// ProcessExpirationsRequest sweeps one contract, or every live contract of
// the caller when ContractID is empty.
type ProcessExpirationsRequest struct {
	ContractID string `json:"contractId"`
}
