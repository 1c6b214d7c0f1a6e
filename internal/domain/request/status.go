package request

type Status string

const (
	StatusDraft        Status = "draft"
	StatusSubmitted    Status = "submitted"
	StatusInReview     Status = "in_review"
	StatusRequiresInfo Status = "requires_info"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusCancelled    Status = "cancelled"
	StatusDisbursed    Status = "disbursed"
)

var transitions = map[Status][]Status{
	StatusDraft:        {StatusSubmitted, StatusCancelled},
	StatusSubmitted:    {StatusInReview, StatusCancelled},
	StatusInReview:     {StatusRequiresInfo, StatusApproved, StatusRejected, StatusCancelled},
	StatusRequiresInfo: {StatusSubmitted, StatusCancelled},
	StatusApproved:     {StatusDisbursed},
	StatusRejected:     {},
	StatusCancelled:    {},
	StatusDisbursed:    {},
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Editable states are the only ones in which a request may be modified or
// deleted.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRequiresInfo
}

// Terminal states accept no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
