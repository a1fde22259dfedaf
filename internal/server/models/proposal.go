package models

import "time"

// Flow is the delivery flow agreed in a proposal.
type Flow string

const (
	FlowStandard  Flow = "standard"
	FlowMilestone Flow = "milestone"
)

// Milestone is one paid step of a milestone flow. Percent is the share of
// the contract total released when the milestone is accepted.
type Milestone struct {
	Title   string `json:"title" validate:"required"`
	Percent int64  `json:"percent" validate:"gt=0,lte=100"`
}

// Proposal is the negotiated, accepted offer a contract is created from. The
// contract keeps a frozen copy of it.
type Proposal struct {
	ID                string      `json:"id" validate:"required"`
	ArtistID          string      `json:"artistId" validate:"required"`
	ClientID          string      `json:"clientId" validate:"required,nefield=ArtistID"`
	Title             string      `json:"title" validate:"required"`
	Description       string      `json:"description,omitempty"`
	Flow              Flow        `json:"flow" validate:"oneof=standard milestone"`
	Milestones        []Milestone `json:"milestones,omitempty" validate:"dive"`
	TotalCents        int64       `json:"totalCents" validate:"gt=0"`
	DeadlineAt        time.Time   `json:"deadlineAt" validate:"required"`
	RevisionsIncluded int         `json:"revisionsIncluded" validate:"gte=0"`
	RevisionFeeCents  int64       `json:"revisionFeeCents" validate:"gte=0"`
}

// Payment splits an amount between the payer's wallet balance and an
// external method settled outside this service.
type Payment struct {
	WalletCents   int64  `json:"walletCents" validate:"gte=0"`
	ExternalCents int64  `json:"externalCents" validate:"gte=0"`
	ExternalRef   string `json:"externalRef,omitempty" validate:"required_unless=ExternalCents 0"`
}

// Total is the sum of both parts.
func (p Payment) Total() int64 {
	return p.WalletCents + p.ExternalCents
}
