package models

import "time"

// UploadKind distinguishes the four deliverable variants.
type UploadKind string

const (
	UploadProgressStandard  UploadKind = "progressStandard"
	UploadProgressMilestone UploadKind = "progressMilestone"
	UploadRevision          UploadKind = "revision"
	UploadFinal             UploadKind = "final"
)

// Reviewable reports whether uploads of this kind need client review.
func (k UploadKind) Reviewable() bool {
	return k == UploadProgressMilestone || k == UploadRevision || k == UploadFinal
}

// UploadStatus is the review state of a reviewable upload.
type UploadStatus string

const (
	UploadSubmitted UploadStatus = "submitted"
	UploadAccepted  UploadStatus = "accepted"
	UploadRejected  UploadStatus = "rejected"
)

// Upload is an artist deliverable. Informational progress uploads leave
// Status and ExpiresAt empty.
type Upload struct {
	ID               string       `json:"id"`
	ContractID       string       `json:"contractId"`
	Kind             UploadKind   `json:"kind"`
	Images           []string     `json:"images"`
	Description      string       `json:"description,omitempty"`
	CreatedBy        string       `json:"createdBy"`
	CreatedAt        time.Time    `json:"createdAt"`
	Status           UploadStatus `json:"status,omitempty"`
	ExpiresAt        *time.Time   `json:"expiresAt,omitempty"`
	MilestoneIndex   *int         `json:"milestoneIndex,omitempty"`
	IsFinal          bool         `json:"isFinal,omitempty"`
	WorkProgress     *int         `json:"workProgress,omitempty"`
	RevisionTicketID string       `json:"revisionTicketId,omitempty"`
	ReviewedAt       *time.Time   `json:"reviewedAt,omitempty"`
}

// Expired reports whether the review window closed before now.
func (u *Upload) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}
