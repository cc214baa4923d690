package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/account"
	"github.com/fighterspassapp/dp-pass-app/internal/services/ledger/storage"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time {
		return at
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type queueKey struct {
	kind        account.ResourceKind
	requestType account.RequestType
}

// fakeStore is an in-memory storage.Store without atomic resolution.
type fakeStore struct {
	mu        sync.Mutex
	accounts  map[string]account.Account
	queues    map[queueKey][]account.Request
	nextID    map[queueKey]int64
	deleteErr error
}

func newFakeStore(accounts ...account.Account) *fakeStore {
	s := &fakeStore{
		accounts: make(map[string]account.Account),
		queues:   make(map[queueKey][]account.Request),
		nextID:   make(map[queueKey]int64),
	}
	for _, acct := range accounts {
		s.accounts[acct.Email] = acct
	}
	return s
}

func (s *fakeStore) balance(email string, kind account.ResourceKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email].Balance(kind)
}

func (s *fakeStore) removeAccount(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, email)
}

func (s *fakeStore) queueLen(kind account.ResourceKind, requestType account.RequestType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[queueKey{kind, requestType}])
}

func (s *fakeStore) GetAccount(_ context.Context, email string) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return account.Account{}, storage.ErrNotFound
	}
	return acct, nil
}

func (s *fakeStore) ListAccounts(_ context.Context, _ string) ([]account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accounts := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Email < accounts[j].Email })
	return accounts, nil
}

func (s *fakeStore) PutAccountProfile(_ context.Context, profile storage.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[profile.Email]
	acct.Email = profile.Email
	acct.Name = profile.Name
	acct.PassBalance = profile.PassBalance
	acct.CDNABalance = profile.CDNABalance
	acct.IsAdmin = profile.IsAdmin
	acct.OnProbation = profile.OnProbation
	s.accounts[profile.Email] = acct
	return nil
}

func (s *fakeStore) AdjustBalance(_ context.Context, email string, kind account.ResourceKind, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if delta > 0 && acct.Balance(kind) > math.MaxInt64-delta {
		return 0, storage.ErrBalanceOverflow
	}
	next := acct.Balance(kind) + delta
	if next < 0 {
		return 0, storage.ErrInsufficientBalance
	}
	s.accounts[email] = acct.WithBalance(kind, next)
	return next, nil
}

func (s *fakeStore) SetBalance(_ context.Context, email string, kind account.ResourceKind, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return storage.ErrNotFound
	}
	s.accounts[email] = acct.WithBalance(kind, value)
	return nil
}

func (s *fakeStore) SetProbation(_ context.Context, email string, onProbation bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return storage.ErrNotFound
	}
	acct.OnProbation = onProbation
	s.accounts[email] = acct
	return nil
}

func (s *fakeStore) SetCredential(_ context.Context, email string, digest string, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return storage.ErrNotFound
	}
	if acct.HasCredential() {
		return storage.ErrConflict
	}
	acct.PasswordDigest = digest
	acct.PasswordSalt = salt
	s.accounts[email] = acct
	return nil
}

func (s *fakeStore) ClearCredential(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[email]
	if !ok {
		return storage.ErrNotFound
	}
	acct.PasswordDigest = ""
	acct.PasswordSalt = ""
	s.accounts[email] = acct
	return nil
}

func (s *fakeStore) InsertRequest(_ context.Context, request account.Request) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[request.Email]; !ok {
		return 0, storage.ErrNotFound
	}
	key := queueKey{request.Kind, request.Type}
	s.nextID[key]++
	request.ID = s.nextID[key]
	s.queues[key] = append(s.queues[key], request)
	return request.ID, nil
}

func (s *fakeStore) GetRequest(_ context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (account.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, request := range s.queues[queueKey{kind, requestType}] {
		if request.ID == id {
			return request, nil
		}
	}
	return account.Request{}, storage.ErrNotFound
}

func (s *fakeStore) DeleteRequest(_ context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if !s.removeLocked(queueKey{kind, requestType}, id) {
		return storage.ErrNotFound
	}
	return nil
}

func (s *fakeStore) removeLocked(key queueKey, id int64) bool {
	queue := s.queues[key]
	for i, request := range queue {
		if request.ID == id {
			s.queues[key] = append(queue[:i:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

func (s *fakeStore) ListRequests(_ context.Context, kind account.ResourceKind, requestType account.RequestType) ([]account.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]account.Request(nil), s.queues[queueKey{kind, requestType}]...), nil
}

func (s *fakeStore) LatestRequest(_ context.Context, kind account.ResourceKind, requestType account.RequestType, email string) (account.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queues[queueKey{kind, requestType}]
	for i := len(queue) - 1; i >= 0; i-- {
		if queue[i].Email == email {
			return queue[i], nil
		}
	}
	return account.Request{}, storage.ErrNotFound
}

func (s *fakeStore) CountRequests(_ context.Context, kind account.ResourceKind, requestType account.RequestType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[queueKey{kind, requestType}]), nil
}

// resolvingStore adds an in-memory atomic resolver on top of fakeStore.
type resolvingStore struct {
	*fakeStore
}

func (s resolvingStore) ResolveRequest(_ context.Context, kind account.ResourceKind, requestType account.RequestType, id int64) (storage.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := queueKey{kind, requestType}
	var request account.Request
	found := false
	for _, candidate := range s.queues[key] {
		if candidate.ID == id {
			request, found = candidate, true
			break
		}
	}
	if !found {
		return storage.Resolution{}, storage.ErrNotFound
	}
	acct, ok := s.accounts[request.Email]
	if !ok {
		return storage.Resolution{Request: request}, storage.ErrAccountNotFound
	}
	delta := requestType.Sign() * request.Amount
	if delta > 0 && acct.Balance(kind) > math.MaxInt64-delta {
		return storage.Resolution{Request: request}, storage.ErrBalanceOverflow
	}
	next := acct.Balance(kind) + delta
	if next < 0 {
		return storage.Resolution{Request: request}, storage.ErrInsufficientBalance
	}
	s.accounts[request.Email] = acct.WithBalance(kind, next)
	s.removeLocked(key, id)
	return storage.Resolution{Request: request, Balance: next}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []RequestEvent
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event RequestEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// stallingSink blocks until its context ends, like an outbox stuck behind a
// busy database.
type stallingSink struct {
	deadline chan bool
}

func (s *stallingSink) Notify(ctx context.Context, _ RequestEvent) error {
	_, ok := ctx.Deadline()
	s.deadline <- ok
	<-ctx.Done()
	return ctx.Err()
}

var errDeleteFailed = errors.New("delete failed")
