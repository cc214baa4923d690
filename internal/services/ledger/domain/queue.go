package domain

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

// SubmitTransfer queues a debit request. The amount must be positive and no
// larger than the current balance; members on probation cannot transfer
// passes.
func (s *Service) SubmitTransfer(ctx context.Context, email string, kind account.ResourceKind, amount int64) (account.Request, error) {
	if err := s.ready(); err != nil {
		return account.Request{}, err
	}
	if amount <= 0 {
		return account.Request{}, apperrors.Validation("amount_positive", "amount must be greater than zero")
	}
	acct, err := s.GetAccount(ctx, email)
	if err != nil {
		return account.Request{}, err
	}
	if kind == account.KindPass && acct.OnProbation {
		return account.Request{}, apperrors.Validation("probation", "pass transfers are blocked while on probation")
	}
	if amount > acct.Balance(kind) {
		return account.Request{}, apperrors.Validation("amount_exceeds_balance", "amount exceeds balance")
	}
	return s.enqueue(ctx, account.Request{
		Kind:   kind,
		Type:   account.TypeTransfer,
		Email:  acct.Email,
		Name:   acct.Name,
		Amount: amount,
	})
}

// SubmitIncentive queues a credit request with a mandatory reason. The credit
// must fit on top of the current balance.
func (s *Service) SubmitIncentive(ctx context.Context, email string, kind account.ResourceKind, amount int64, reason string) (account.Request, error) {
	if err := s.ready(); err != nil {
		return account.Request{}, err
	}
	if amount <= 0 {
		return account.Request{}, apperrors.Validation("amount_positive", "amount must be greater than zero")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return account.Request{}, apperrors.Validation("reason_required", "reason is required")
	}
	acct, err := s.GetAccount(ctx, email)
	if err != nil {
		return account.Request{}, err
	}
	if !creditFits(acct.Balance(kind), amount) {
		return account.Request{}, balanceOverflow()
	}
	return s.enqueue(ctx, account.Request{
		Kind:   kind,
		Type:   account.TypeIncentive,
		Email:  acct.Email,
		Name:   acct.Name,
		Amount: amount,
		Reason: reason,
	})
}

func (s *Service) enqueue(ctx context.Context, request account.Request) (account.Request, error) {
	request.CreatedAt = s.now()
	id, err := s.store.InsertRequest(ctx, request)
	if err != nil {
		return account.Request{}, accountError(err, request.Email)
	}
	request.ID = id
	s.logger.InfoContext(ctx, "request submitted",
		"request_id", id,
		"kind", string(request.Kind),
		"type", string(request.Type),
		"email", request.Email,
		"amount", request.Amount,
	)
	if notifies(request) {
		s.notify(ctx, request)
	}
	return request, nil
}

// notifies reports whether a new request is announced to administrators:
// every incentive request and CDNA transfers.
func notifies(request account.Request) bool {
	return request.Type == account.TypeIncentive || request.Kind == account.KindCDNA
}

func (s *Service) notify(ctx context.Context, request account.Request) {
	if s.sink == nil {
		return
	}
	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	err := s.sink.Notify(notifyCtx, RequestEvent{
		Kind:      request.Kind,
		Type:      request.Type,
		RequestID: request.ID,
		Email:     request.Email,
		Name:      request.Name,
		Amount:    request.Amount,
		Reason:    request.Reason,
		CreatedAt: request.CreatedAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "notify request", "request_id", request.ID, "error", err)
	}
}

// ListPending returns one queue oldest first.
func (s *Service) ListPending(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) ([]account.Request, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListRequests(ctx, kind, requestType)
}

// FindLatestByAccount returns the newest queued request of an account, if any.
func (s *Service) FindLatestByAccount(ctx context.Context, email string, kind account.ResourceKind, requestType account.RequestType) (account.Request, bool, error) {
	if err := s.ready(); err != nil {
		return account.Request{}, false, err
	}
	request, err := s.store.LatestRequest(ctx, kind, requestType, account.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return account.Request{}, false, nil
	}
	if err != nil {
		return account.Request{}, false, err
	}
	return request, true, nil
}

// CountPending returns the queue length.
func (s *Service) CountPending(ctx context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountRequests(ctx, kind, requestType)
}

// Deny removes a queued request without touching any balance.
func (s *Service) Deny(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	ctx, span := s.startSpan(ctx, "ledger.Deny", requestAttrs(kind, requestType, id)...)
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteRequest(ctx, kind, requestType, id); err != nil {
		return requestError(err, id)
	}
	s.logger.InfoContext(ctx, "request denied", "request_id", id, "kind", string(kind), "type", string(requestType))
	return nil
}
