package domain

import (
	"context"
	"errors"
	"strconv"

	apperrors "github.com/fighterspassapp/dp-pass-app/internal/platform/errors"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

// Approval is the outcome of an approved request.
type Approval struct {
	Request account.Request
	Balance int64
}

// ApproveTransfer debits the requested amount and removes the request.
func (s *Service) ApproveTransfer(ctx context.Context, kind account.ResourceKind, id int64) (Approval, error) {
	return s.approve(ctx, kind, account.TypeTransfer, id)
}

// ApproveIncentive credits the requested amount and removes the request.
func (s *Service) ApproveIncentive(ctx context.Context, kind account.ResourceKind, id int64) (Approval, error) {
	return s.approve(ctx, kind, account.TypeIncentive, id)
}

func (s *Service) approve(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (approval Approval, err error) {
	if err := s.ready(); err != nil {
		return Approval{}, err
	}
	ctx, span := s.startSpan(ctx, "ledger.Approve", requestAttrs(kind, requestType, id)...)
	defer func() { endSpan(span, err) }()

	resolver, ok := s.store.(storage.RequestResolver)
	if ok && !s.stepwise {
		approval, err = s.approveAtomic(ctx, resolver, kind, requestType, id)
	} else {
		approval, err = s.approveStepwise(ctx, kind, requestType, id)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "approval failed",
			"request_id", id,
			"kind", string(kind),
			"type", string(requestType),
			"code", string(apperrors.CodeOf(err)),
			"error", err,
		)
		return Approval{}, err
	}
	s.logger.InfoContext(ctx, "request approved",
		"request_id", id,
		"kind", string(kind),
		"type", string(requestType),
		"email", approval.Request.Email,
		"amount", approval.Request.Amount,
		"balance", approval.Balance,
	)
	return approval, nil
}

func (s *Service) approveAtomic(ctx context.Context, resolver storage.RequestResolver, kind account.ResourceKind, requestType account.RequestType, id int64) (Approval, error) {
	resolution, err := resolver.ResolveRequest(ctx, kind, requestType, id)
	switch {
	case err == nil:
		return Approval{Request: resolution.Request, Balance: resolution.Balance}, nil
	case errors.Is(err, storage.ErrInsufficientBalance):
		balance, getErr := s.GetBalance(ctx, resolution.Request.Email, kind)
		if getErr != nil {
			return Approval{}, getErr
		}
		return Approval{}, apperrors.InsufficientBalance(kind.Label(), balance, resolution.Request.Amount)
	case errors.Is(err, storage.ErrBalanceOverflow):
		return Approval{}, balanceOverflow()
	case errors.Is(err, storage.ErrAccountNotFound):
		return Approval{}, accountError(err, resolution.Request.Email)
	default:
		return Approval{}, requestError(err, id)
	}
}

// approveStepwise reads the request and balance, writes the new balance, then
// deletes the request. A failed delete after the write is a partial failure.
func (s *Service) approveStepwise(ctx context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (Approval, error) {
	request, err := s.store.GetRequest(ctx, kind, requestType, id)
	if err != nil {
		return Approval{}, requestError(err, id)
	}
	current, err := s.GetBalance(ctx, request.Email, kind)
	if err != nil {
		return Approval{}, err
	}
	if requestType == account.TypeTransfer && current < request.Amount {
		return Approval{}, apperrors.InsufficientBalance(kind.Label(), current, request.Amount)
	}
	if requestType == account.TypeIncentive && !creditFits(current, request.Amount) {
		return Approval{}, balanceOverflow()
	}
	balance, err := s.Adjust(ctx, request.Email, kind, requestType.Sign()*request.Amount)
	if err != nil {
		return Approval{}, err
	}
	if err := s.store.DeleteRequest(ctx, kind, requestType, id); err != nil {
		return Approval{}, apperrors.PartialFailure("balance updated but request not removed", map[string]string{
			"RequestID": strconv.FormatInt(id, 10),
			"Kind":      string(kind),
			"Type":      string(requestType),
		}, err)
	}
	return Approval{Request: request, Balance: balance}, nil
}
