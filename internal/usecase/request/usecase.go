package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"microcredit-backend/internal/domain/audit"
	"microcredit-backend/internal/domain/credit"
	"microcredit-backend/internal/domain/document"
	"microcredit-backend/internal/domain/errs"
	"microcredit-backend/internal/domain/notification"
	"microcredit-backend/internal/domain/profile"
	domain "microcredit-backend/internal/domain/request"
	"microcredit-backend/internal/domain/uow"
	"microcredit-backend/internal/usecase/ledger"
	"microcredit-backend/internal/usecase/restriction"
	"microcredit-backend/pkg/id"
)

// How many times Create re-draws a daily request number after losing a
// unique-index race.
const numberAttempts = 3

// Usecase owns the long-form request state machine. Every transition runs in
// a transaction and appends exactly one review-history entry; the history is
// append-only and survives request deletion.
type Usecase struct {
	uow      uow.UnitOfWork
	requests domain.Repository
	history  domain.HistoryRepository
	docs     domain.DocumentRepository
	store    document.Store
	ledger   *ledger.Usecase
	limits   restriction.Limits
	notifier notification.Port
	sink     audit.Sink
	log      *logrus.Logger
	now      func() time.Time
}

func NewUsecase(
	u uow.UnitOfWork,
	requests domain.Repository,
	history domain.HistoryRepository,
	docs domain.DocumentRepository,
	store document.Store,
	lw *ledger.Usecase,
	limits restriction.Limits,
	notifier notification.Port,
	sink audit.Sink,
	log *logrus.Logger,
) *Usecase {
	if notifier == nil {
		notifier = notification.Nop{}
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Usecase{
		uow: u, requests: requests, history: history, docs: docs, store: store,
		ledger: lw, limits: limits, notifier: notifier, sink: sink, log: log, now: time.Now,
	}
}

func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Create opens a new draft request and records the opening history entry.
func (u *Usecase) Create(ctx context.Context, in CreateInput, actor Actor) (*domain.CreditRequest, error) {
	if len(in.UserID) != 32 {
		return nil, errs.Validation("user_id", "must be a 32-char id")
	}

	// Two Creates racing on the same day can draw the same daily number;
	// the unique index catches the loser, which recounts and retries.
	var out *domain.CreditRequest
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
			number, err := u.nextRequestNumber(ctx, r.Requests)
			if err != nil {
				return err
			}
			req := &domain.CreditRequest{
				RequestID:        id.NewID32(),
				RequestNumber:    number,
				UserID:           in.UserID,
				Status:           domain.StatusDraft,
				PersonalInfo:     in.PersonalInfo,
				CreditDetails:    in.CreditDetails,
				FinancialDetails: in.FinancialDetails,
			}
			if err := r.Requests.Create(ctx, req); err != nil {
				if errors.Is(err, errs.ErrDuplicate) {
					return err
				}
				return errs.Dependency("request.create", err)
			}
			if err := r.History.Append(ctx, &domain.ReviewHistory{
				RequestRef: req.ID,
				Action:     "Draft created",
				NewStatus:  string(domain.StatusDraft),
				ActorID:    actor.ID,
				ActorName:  actor.displayName(),
			}); err != nil {
				return errs.Dependency("request.history", err)
			}
			out = req
			return nil
		})
		if !errors.Is(err, errs.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return nil, errs.Dependency("request.number", err)
		}
		return nil, err
	}
	u.audit(ctx, "request_created", out, nil)
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, requestID string) (*domain.CreditRequest, error) {
	return u.requests.GetByRequestID(ctx, requestID)
}

func (u *Usecase) List(ctx context.Context, userID string, f domain.ListFilter) ([]domain.CreditRequest, error) {
	return u.requests.ListByUser(ctx, userID, f)
}

// Update edits request content. Only draft and requires_info accept edits;
// content edits do not produce history entries, transitions do.
func (u *Usecase) Update(ctx context.Context, requestID string, in UpdateInput) (*domain.CreditRequest, error) {
	var out *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Editable() {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "edit"}
		}
		if in.PersonalInfo != nil {
			req.PersonalInfo = *in.PersonalInfo
		}
		if in.CreditDetails != nil {
			req.CreditDetails = *in.CreditDetails
		}
		if in.FinancialDetails != nil {
			req.FinancialDetails = *in.FinancialDetails
		}
		if err := r.Requests.Save(ctx, req); err != nil {
			return errs.Dependency("request.save", err)
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SaveDraft upserts the user's working draft without creating a new request
// each time the client autosaves.
func (u *Usecase) SaveDraft(ctx context.Context, in CreateInput, actor Actor) (*domain.CreditRequest, error) {
	existing, err := u.requests.LatestDraftByUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return u.Create(ctx, in, actor)
	}
	return u.Update(ctx, existing.RequestID, UpdateInput{
		PersonalInfo:     &in.PersonalInfo,
		CreditDetails:    &in.CreditDetails,
		FinancialDetails: &in.FinancialDetails,
	})
}

// GetDraft returns (nil, nil) when the user has no draft.
func (u *Usecase) GetDraft(ctx context.Context, userID string) (*domain.CreditRequest, error) {
	return u.requests.LatestDraftByUser(ctx, userID)
}

func (u *Usecase) DeleteDraft(ctx context.Context, userID string, actor Actor) error {
	draft, err := u.requests.LatestDraftByUser(ctx, userID)
	if err != nil {
		return err
	}
	if draft == nil {
		return errs.ErrNotFound
	}
	return u.Delete(ctx, draft.RequestID, actor)
}

// Delete removes a request while it is still editable. Review history rows
// stay behind so the trail survives deletion.
func (u *Usecase) Delete(ctx context.Context, requestID string, actor Actor) error {
	var deleted *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Editable() {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "delete"}
		}
		if err := r.Requests.Delete(ctx, req); err != nil {
			return errs.Dependency("request.delete", err)
		}
		deleted = req
		return nil
	})
	if err != nil {
		return err
	}
	u.audit(ctx, "request_deleted", deleted, nil)
	return nil
}

// Submit validates the request and moves it into submitted.
// The restriction rules run under the user lock so a blocked user cannot get
// a second application through a concurrent submit.
func (u *Usecase) Submit(ctx context.Context, requestID string, actor Actor) (*domain.CreditRequest, error) {
	head, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var out *domain.CreditRequest
	err = u.uow.WithinUserTx(ctx, head.UserID, func(r uow.Repos, p *profile.FinancialProfile) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, domain.StatusSubmitted) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "submit"}
		}

		docs, err := r.Documents.ListByRequest(ctx, req.ID)
		if err != nil {
			return errs.Dependency("request.documents", err)
		}
		if ve := validateForSubmission(req, docs); ve != nil {
			return ve
		}

		// The portfolio rules gate new applications only. A resubmission
		// after requires_info is the same application and must not be blocked
		// by the cooldown its own first submission started.
		first := req.Status == domain.StatusDraft
		if first {
			count, err := r.Credits.CountActiveByUser(ctx, req.UserID)
			if err != nil {
				return errs.Dependency("restriction.count_active", err)
			}
			totalDebt, err := r.Credits.SumActiveRemainingByUser(ctx, req.UserID)
			if err != nil {
				return errs.Dependency("restriction.sum_active", err)
			}
			prev, _ := r.Restrictions.GetByUserID(ctx, req.UserID)
			snapshot := restriction.Compute(p, int(count), totalDebt, prev, u.now().UTC(), u.limits)
			if err := restriction.Blocking(snapshot); err != nil {
				return err
			}
		}

		now := u.now().UTC()
		req.SubmissionDate = &now
		if err := u.transition(ctx, r, req, domain.StatusSubmitted, actor, "Request submitted for review"); err != nil {
			return err
		}

		if first {
			// The first submission starts the cooldown window.
			if _, err := restriction.RefreshIn(ctx, r, p, u.limits, now, true); err != nil {
				return errs.Dependency("restriction.refresh", err)
			}
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if nerr := u.notifier.NotifyReviewers(ctx, out); nerr != nil {
		u.log.WithError(nerr).WithField("request_id", out.RequestID).Warn("reviewer notification failed")
	}
	u.audit(ctx, "request_submitted", out, map[string]any{"request_number": out.RequestNumber})
	return out, nil
}

// Claim assigns a submitted request to a reviewer and starts the review.
func (u *Usecase) Claim(ctx context.Context, requestID string, actor Actor) (*domain.CreditRequest, error) {
	var out *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, domain.StatusInReview) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "claim"}
		}
		now := u.now().UTC()
		req.ReviewStartedDate = &now
		req.AssignedTo = actor.ID
		if err := u.transition(ctx, r, req, domain.StatusInReview, actor, "Review started"); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RequireInfo sends an in-review request back to the applicant with a
// comment explaining what is missing.
func (u *Usecase) RequireInfo(ctx context.Context, requestID string, comment string, actor Actor) (*domain.CreditRequest, error) {
	if comment == "" {
		return nil, errs.Validation("comment", "is required")
	}
	var out *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, domain.StatusRequiresInfo) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "require info"}
		}
		if err := u.transitionWithComment(ctx, r, req, domain.StatusRequiresInfo, actor, "Additional information requested", comment); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Decide approves or rejects an in-review request. Approval terms default to
// the requested values when the reviewer leaves them blank.
func (u *Usecase) Decide(ctx context.Context, requestID string, in DecideInput, actor Actor) (*domain.CreditRequest, error) {
	target := domain.StatusRejected
	action := "Request rejected"
	if in.Approve {
		target = domain.StatusApproved
		action = "Request approved"
	}

	var out *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, target) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "decide"}
		}

		now := u.now().UTC()
		req.DecisionDate = &now
		req.DecisionBy = actor.ID
		req.DecisionNotes = in.Notes

		if in.Approve {
			amount := req.CreditDetails.RequestedAmount
			if in.ApprovedAmount != nil {
				amount = *in.ApprovedAmount
			}
			if amount <= 0 {
				return errs.Validation("approved_amount", "must be greater than zero")
			}
			rate := credit.TypeConsumption.InterestRate()
			if in.ApprovedRate != nil {
				rate = *in.ApprovedRate
			}
			months := req.CreditDetails.DurationMonths
			if in.ApprovedDurationMonths != nil {
				months = *in.ApprovedDurationMonths
			}
			req.ApprovedAmount = &amount
			req.ApprovedRate = &rate
			req.ApprovedDurationMonths = &months
		}

		if err := u.transitionWithComment(ctx, r, req, target, actor, action, in.Notes); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.audit(ctx, "request_decided", out, map[string]any{"status": string(out.Status)})
	return out, nil
}

// Disburse turns an approved request into a ledger credit. The status flip
// and the ledger insert commit or roll back together.
func (u *Usecase) Disburse(ctx context.Context, requestID string, actor Actor) (*domain.CreditRequest, *credit.DisbursedCredit, error) {
	head, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	var (
		outReq *domain.CreditRequest
		outCr  *credit.DisbursedCredit
	)
	err = u.uow.WithinUserTx(ctx, head.UserID, func(r uow.Repos, p *profile.FinancialProfile) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, domain.StatusDisbursed) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "disburse"}
		}
		if req.ApprovedAmount == nil || *req.ApprovedAmount <= 0 {
			return errs.Validation("approved_amount", "request has no approved amount")
		}

		months := req.CreditDetails.DurationMonths
		if req.ApprovedDurationMonths != nil {
			months = *req.ApprovedDurationMonths
		}
		cr, err := u.ledger.RegisterIn(ctx, r, p, ledger.RegisterInput{
			UserID:         req.UserID,
			Type:           credit.TypeConsumption,
			Principal:      *req.ApprovedAmount,
			DurationMonths: months,
			Rate:           req.ApprovedRate,
			RequestRef:     &req.ID,
		})
		if err != nil {
			return err
		}

		if err := u.transition(ctx, r, req, domain.StatusDisbursed, actor, "Credit disbursed"); err != nil {
			return err
		}
		outReq = req
		outCr = cr
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	u.ledger.Rescore(ctx, outReq.UserID)
	u.audit(ctx, "request_disbursed", outReq, map[string]any{"credit_id": outCr.CreditID, "amount": outCr.Principal})
	return outReq, outCr, nil
}

// Cancel aborts a request from any non-terminal pre-disbursement state.
func (u *Usecase) Cancel(ctx context.Context, requestID string, reason string, actor Actor) (*domain.CreditRequest, error) {
	var out *domain.CreditRequest
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		req, err := r.Requests.GetByRequestIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanTransition(req.Status, domain.StatusCancelled) {
			return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "cancel"}
		}
		if err := u.transitionWithComment(ctx, r, req, domain.StatusCancelled, actor, "Request cancelled", reason); err != nil {
			return err
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddComment appends a history-only note; it never changes status and is
// allowed in any state.
func (u *Usecase) AddComment(ctx context.Context, requestID string, comment string, actor Actor) error {
	if comment == "" {
		return errs.Validation("comment", "is required")
	}
	req, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	return u.history.Append(ctx, &domain.ReviewHistory{
		RequestRef: req.ID,
		Action:     "Comment added",
		NewStatus:  string(req.Status),
		ActorID:    actor.ID,
		ActorName:  actor.displayName(),
		Comment:    comment,
	})
}

// UploadDocument stores the file and attaches it to an editable request.
// Re-uploading a type replaces the previous file of that type.
func (u *Usecase) UploadDocument(ctx context.Context, requestID string, in UploadInput, actor Actor) (*domain.Document, error) {
	if ve := validateUpload(in); ve != nil {
		return nil, ve
	}

	req, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.Editable() {
		return nil, &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "upload document"}
	}

	stored, err := u.store.Store(ctx, req.RequestID, string(in.Type), in.Filename, in.Data)
	if err != nil {
		return nil, errs.Dependency("document.store", err)
	}

	var out *domain.Document
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		existing, err := r.Documents.ListByRequest(ctx, req.ID)
		if err != nil {
			return errs.Dependency("request.documents", err)
		}
		for i := range existing {
			if existing[i].Type != in.Type {
				continue
			}
			if err := r.Documents.Delete(ctx, &existing[i]); err != nil {
				return errs.Dependency("document.delete", err)
			}
			if rerr := u.store.Remove(ctx, existing[i].Path); rerr != nil {
				u.log.WithError(rerr).WithField("path", existing[i].Path).Warn("stale document file not removed")
			}
		}

		doc := &domain.Document{
			DocumentID:       id.NewID32(),
			RequestRef:       req.ID,
			Type:             in.Type,
			Name:             in.Type.DisplayName(),
			OriginalFilename: in.Filename,
			Path:             stored.Path,
			SizeBytes:        stored.Size,
			MimeType:         in.MimeType,
			Checksum:         stored.Checksum,
			Required:         in.Type.Required(),
			UploadedBy:       actor.ID,
		}
		if err := r.Documents.Create(ctx, doc); err != nil {
			return errs.Dependency("document.create", err)
		}
		if err := r.History.Append(ctx, &domain.ReviewHistory{
			RequestRef: req.ID,
			Action:     "Document uploaded: " + in.Type.DisplayName(),
			NewStatus:  string(req.Status),
			ActorID:    actor.ID,
			ActorName:  actor.displayName(),
		}); err != nil {
			return errs.Dependency("request.history", err)
		}
		out = doc
		return nil
	})
	if err != nil {
		// Best effort; an orphaned file is cheaper than a dangling row.
		if rerr := u.store.Remove(ctx, stored.Path); rerr != nil {
			u.log.WithError(rerr).WithField("path", stored.Path).Warn("orphaned document file not removed")
		}
		return nil, err
	}
	return out, nil
}

func (u *Usecase) DeleteDocument(ctx context.Context, requestID, documentID string, actor Actor) error {
	req, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.Editable() {
		return &errs.StateConflictError{Entity: "credit request", Current: string(req.Status), Attempted: "delete document"}
	}

	doc, err := u.docs.GetByDocumentID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.RequestRef != req.ID {
		return errs.ErrNotFound
	}
	if err := u.docs.Delete(ctx, doc); err != nil {
		return errs.Dependency("document.delete", err)
	}
	if rerr := u.store.Remove(ctx, doc.Path); rerr != nil {
		u.log.WithError(rerr).WithField("path", doc.Path).Warn("document file not removed")
	}
	return nil
}

func (u *Usecase) Documents(ctx context.Context, requestID string) ([]domain.Document, error) {
	req, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return u.docs.ListByRequest(ctx, req.ID)
}

func (u *Usecase) HistoryOf(ctx context.Context, requestID string) ([]domain.ReviewHistory, error) {
	req, err := u.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return u.history.ListByRequest(ctx, req.ID)
}

// Stats aggregates the user's request portfolio for the dashboard view.
func (u *Usecase) Stats(ctx context.Context, userID string) (*Stats, error) {
	all, err := u.requests.ListByUser(ctx, userID, domain.ListFilter{})
	if err != nil {
		return nil, err
	}
	s := &Stats{Total: len(all)}
	for i := range all {
		switch all[i].Status {
		case domain.StatusDraft:
			s.Draft++
		case domain.StatusSubmitted:
			s.Submitted++
		case domain.StatusInReview, domain.StatusRequiresInfo:
			s.InReview++
		case domain.StatusApproved:
			s.Approved++
		case domain.StatusRejected:
			s.Rejected++
		case domain.StatusDisbursed:
			s.Disbursed++
		}
		s.TotalRequestedAmount += all[i].CreditDetails.RequestedAmount
	}
	return s, nil
}

// transition flips the status, saves, and appends the single history entry
// for the move. Callers check CanTransition first so they can return an
// operation-specific StateConflictError.
func (u *Usecase) transition(ctx context.Context, r uow.Repos, req *domain.CreditRequest, to domain.Status, actor Actor, action string) error {
	return u.transitionWithComment(ctx, r, req, to, actor, action, "")
}

func (u *Usecase) transitionWithComment(ctx context.Context, r uow.Repos, req *domain.CreditRequest, to domain.Status, actor Actor, action, comment string) error {
	from := req.Status
	req.Status = to
	if err := r.Requests.Save(ctx, req); err != nil {
		return errs.Dependency("request.save", err)
	}
	return r.History.Append(ctx, &domain.ReviewHistory{
		RequestRef:     req.ID,
		Action:         action,
		PreviousStatus: string(from),
		NewStatus:      string(to),
		ActorID:        actor.ID,
		ActorName:      actor.displayName(),
		Comment:        comment,
	})
}

func (u *Usecase) nextRequestNumber(ctx context.Context, repo domain.Repository) (string, error) {
	now := u.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	n, err := repo.CountCreatedSince(ctx, midnight)
	if err != nil {
		return "", errs.Dependency("request.count", err)
	}
	return fmt.Sprintf("LCR-%s-%04d", now.Format("20060102"), n+1), nil
}

func (u *Usecase) audit(ctx context.Context, action string, req *domain.CreditRequest, detail map[string]any) {
	u.sink.Record(ctx, audit.Event{
		Action:   action,
		UserID:   req.UserID,
		Entity:   "credit_request",
		EntityID: req.RequestID,
		Detail:   detail,
		At:       u.now().UTC(),
	})
}
