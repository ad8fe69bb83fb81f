package domain

import "time"

// ChangeOutcome discriminates what happened to a configuration change.
type ChangeOutcome string

const (
	// ChangeApplied means the sample was still pending and the new
	// configuration was committed immediately.
	ChangeApplied ChangeOutcome = "applied"
	// ChangeNeedsApproval means lab work already started; the change was
	// recorded and forwarded to the lab for approval.
	ChangeNeedsApproval ChangeOutcome = "needs_approval"
	// ChangeRejected means the sample is in a terminal state and the change
	// cannot be taken at all.
	ChangeRejected ChangeOutcome = "rejected"
)

func (o ChangeOutcome) String() string { return string(o) }

// ChangeRequestStatus tracks a flagged change awaiting the lab's decision.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending_approval"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestDeclined ChangeRequestStatus = "declined"
)

func (s ChangeRequestStatus) String() string { return string(s) }

func (s ChangeRequestStatus) IsValid() bool {
	switch s {
	case ChangeRequestPending, ChangeRequestApproved, ChangeRequestDeclined:
		return true
	}
	return false
}

// ChangeRequest records a configuration change submitted against a sample
// that already entered processing. CostDelta is the signed billing impact
// computed from the snapshot the request was made against.
type ChangeRequest struct {
	ID               string
	SampleID         string
	ProposedPackage  string
	ProposedAddOnIDs []string
	ProposedName     *string
	CostDelta        float64
	Status           ChangeRequestStatus
	Dispatched       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
