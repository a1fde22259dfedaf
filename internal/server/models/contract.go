package models

import "time"

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	StatusActive              ContractStatus = "active"
	StatusInRevision          ContractStatus = "inRevision"
	StatusDisputed            ContractStatus = "disputed"
	StatusCompleted           ContractStatus = "completed"
	StatusCompletedLate       ContractStatus = "completedLate"
	StatusCancelledClient     ContractStatus = "cancelledClient"
	StatusCancelledClientLate ContractStatus = "cancelledClientLate"
	StatusCancelledArtist     ContractStatus = "cancelledArtist"
	StatusCancelledArtistLate ContractStatus = "cancelledArtistLate"
	StatusNotCompleted        ContractStatus = "notCompleted"
)

// AllContractStatuses lists every status in declaration order.
var AllContractStatuses = []ContractStatus{
	StatusActive, StatusInRevision, StatusDisputed,
	StatusCompleted, StatusCompletedLate,
	StatusCancelledClient, StatusCancelledClientLate,
	StatusCancelledArtist, StatusCancelledArtistLate,
	StatusNotCompleted,
}

// LiveStatuses are the statuses the reconciliation sweep looks at.
var LiveStatuses = []ContractStatus{StatusActive, StatusInRevision, StatusDisputed}

var terminalOutcomes = []ContractStatus{
	StatusCompleted, StatusCompletedLate,
	StatusCancelledClient, StatusCancelledClientLate,
	StatusCancelledArtist, StatusCancelledArtistLate,
	StatusNotCompleted,
}

var transitions = map[ContractStatus][]ContractStatus{
	StatusActive: append([]ContractStatus{StatusInRevision, StatusDisputed}, terminalOutcomes...),
	StatusInRevision: {
		StatusActive, StatusDisputed,
		StatusCancelledClient, StatusCancelledClientLate,
		StatusCancelledArtist, StatusCancelledArtistLate,
		StatusNotCompleted,
	},
	// active and inRevision are reachable from disputed only when the last
	// open resolution ticket is withdrawn.
	StatusDisputed: append([]ContractStatus{StatusActive, StatusInRevision}, terminalOutcomes...),
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to ContractStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s ContractStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsCompleted reports whether s is a completed variant.
func (s ContractStatus) IsCompleted() bool {
	return s == StatusCompleted || s == StatusCompletedLate
}

// IsOpenForWork reports whether uploads and new tickets are accepted.
func (s ContractStatus) IsOpenForWork() bool {
	return s == StatusActive || s == StatusInRevision
}

// Role is the side of a contract a user acts as.
type Role string

const (
	RoleClient Role = "client"
	RoleArtist Role = "artist"
)

// Finance is the money owned by a contract. TotalCents never changes after
// funding; OwedArtistCents+OwedClientCents equals TotalCents once the
// contract is terminal.
type Finance struct {
	TotalCents         int64 `json:"totalCents"`
	OwedArtistCents    int64 `json:"owedArtistCents"`
	OwedClientCents    int64 `json:"owedClientCents"`
	EscrowedCents      int64 `json:"escrowedCents"`
	ArtistClaimedCents int64 `json:"artistClaimedCents"`
	ClientClaimedCents int64 `json:"clientClaimedCents"`
}

// Contract is the central record of a commission.
type Contract struct {
	ID                    string         `json:"id"`
	ProposalID            string         `json:"proposalId"`
	ArtistID              string         `json:"artistId"`
	ClientID              string         `json:"clientId"`
	Proposal              Proposal       `json:"proposal"`
	Flow                  Flow           `json:"flow"`
	Status                ContractStatus `json:"status"`
	StatusBeforeDispute   ContractStatus `json:"statusBeforeDispute,omitempty"`
	Finance               Finance        `json:"finance"`
	CurrentMilestoneIndex int            `json:"currentMilestoneIndex"`
	DeadlineAt            time.Time      `json:"deadlineAt"`
	Version               int64          `json:"version"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// RoleOf returns the role userID plays in the contract.
func (c *Contract) RoleOf(userID string) (Role, bool) {
	switch userID {
	case c.ClientID:
		return RoleClient, true
	case c.ArtistID:
		return RoleArtist, true
	default:
		return "", false
	}
}

// PartyID returns the user acting as role.
func (c *Contract) PartyID(role Role) string {
	if role == RoleArtist {
		return c.ArtistID
	}
	return c.ClientID
}

// Counterpart returns the user on the other side of role.
func (c *Contract) Counterpart(role Role) string {
	if role == RoleArtist {
		return c.ClientID
	}
	return c.ArtistID
}

// IsLastMilestone reports whether idx is the final milestone of the proposal.
func (c *Contract) IsLastMilestone(idx int) bool {
	return idx == len(c.Proposal.Milestones)-1
}
