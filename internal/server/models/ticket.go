package models

import "time"

// TicketKind names the four ticket families.
type TicketKind string

const (
	TicketCancel     TicketKind = "cancel"
	TicketRevision   TicketKind = "revision"
	TicketChange     TicketKind = "change"
	TicketResolution TicketKind = "resolution"
)

// TicketStatus is shared by cancel, revision and change tickets. Not every
// kind uses every value.
type TicketStatus string

const (
	TicketOpen            TicketStatus = "open"
	TicketAwaitingPayment TicketStatus = "awaitingPayment"
	TicketAccepted        TicketStatus = "accepted"
	TicketRejected        TicketStatus = "rejected"
	TicketCompleted       TicketStatus = "completed"
	TicketExpired         TicketStatus = "expired"
)

// Pending reports whether the ticket still waits on a party.
func (s TicketStatus) Pending() bool {
	return s == TicketOpen || s == TicketAwaitingPayment
}

// TicketBase holds the fields every ticket carries.
type TicketBase struct {
	ID            string       `json:"id"`
	ContractID    string       `json:"contractId"`
	SubmittedBy   Role         `json:"submittedBy"`
	SubmittedByID string       `json:"submittedById"`
	Status        TicketStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	RespondedAt   *time.Time   `json:"respondedAt,omitempty"`
}

// Overdue reports whether a pending ticket passed its expiry.
func (t *TicketBase) Overdue(now time.Time) bool {
	return t.Status.Pending() && now.After(t.ExpiresAt)
}

// CancelTicket asks the counterpart to end the contract early.
type CancelTicket struct {
	TicketBase
	Reason string `json:"reason"`
}

// RevisionTicket asks the artist to rework a delivered upload.
type RevisionTicket struct {
	TicketBase
	TargetUploadID string `json:"targetUploadId"`
	Description    string `json:"description"`
	FeeCents       int64  `json:"feeCents"`
	FeePaid        bool   `json:"feePaid"`
}

// ChangeTicket proposes a change of scope or deadline.
type ChangeTicket struct {
	TicketBase
	ProposedChange string     `json:"proposedChange"`
	NewDeadlineAt  *time.Time `json:"newDeadlineAt,omitempty"`
	FeeCents       int64      `json:"feeCents"`
	PaidFeeCents   int64      `json:"paidFeeCents"`
}

// TargetType names what a resolution ticket disputes.
type TargetType string

const (
	TargetContract       TargetType = "contract"
	TargetUpload         TargetType = "upload"
	TargetCancelTicket   TargetType = "cancelTicket"
	TargetRevisionTicket TargetType = "revisionTicket"
	TargetChangeTicket   TargetType = "changeTicket"
)

// ResolutionStatus is the lifecycle of a dispute.
type ResolutionStatus string

const (
	ResolutionOpen           ResolutionStatus = "open"
	ResolutionAwaitingReview ResolutionStatus = "awaitingReview"
	ResolutionResolved       ResolutionStatus = "resolved"
	ResolutionCancelled      ResolutionStatus = "cancelled"
)

// Unresolved reports whether the dispute still holds the contract.
func (s ResolutionStatus) Unresolved() bool {
	return s == ResolutionOpen || s == ResolutionAwaitingReview
}

// Decision is the outcome of a dispute.
type Decision string

const (
	FavorClient Decision = "favorClient"
	FavorArtist Decision = "favorArtist"
)

// Favors returns the decision in favor of role.
func Favors(role Role) Decision {
	if role == RoleArtist {
		return FavorArtist
	}
	return FavorClient
}

// ResolutionTicket is a dispute raised by one party and arbitrated by an
// admin or the lapse policy.
type ResolutionTicket struct {
	ID                 string           `json:"id"`
	ContractID         string           `json:"contractId"`
	SubmittedBy        Role             `json:"submittedBy"`
	SubmittedByID      string           `json:"submittedById"`
	CounterpartyID     string           `json:"counterpartyId"`
	TargetType         TargetType       `json:"targetType"`
	TargetID           string           `json:"targetId"`
	Description        string           `json:"description"`
	ProofImages        []string         `json:"proofImages"`
	CounterDescription string           `json:"counterDescription,omitempty"`
	CounterProofImages []string         `json:"counterProofImages"`
	CounterExpiresAt   time.Time        `json:"counterExpiresAt"`
	CounteredAt        *time.Time       `json:"counteredAt,omitempty"`
	Status             ResolutionStatus `json:"status"`
	Decision           Decision         `json:"decision,omitempty"`
	ResolutionNote     string           `json:"resolutionNote,omitempty"`
	ResolvedBy         string           `json:"resolvedBy,omitempty"`
	ResolvedAt         *time.Time       `json:"resolvedAt,omitempty"`
	Escalated          bool             `json:"escalated"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Lapsed reports whether the counterparty missed the counterproof window.
func (t *ResolutionTicket) Lapsed(now time.Time) bool {
	return t.Status == ResolutionOpen && t.CounteredAt == nil && now.After(t.CounterExpiresAt)
}

// TicketSet groups every ticket of one contract.
type TicketSet struct {
	Cancel     []*CancelTicket     `json:"cancel"`
	Revision   []*RevisionTicket   `json:"revision"`
	Change     []*ChangeTicket     `json:"change"`
	Resolution []*ResolutionTicket `json:"resolution"`
}
