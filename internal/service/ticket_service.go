// Package service runs ticket operations against the event store.  Each
// mutating call loads the event snapshot, applies one domain operation
// and writes it back with a version check, retrying when another writer
// got there first.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/event-ticket-vault/internal/lock"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/queue"
	"github.com/iliyamo/event-ticket-vault/internal/repository"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

// EventStore persists one snapshot per (owner, name) with optimistic
// versioning.
type EventStore interface {
	Create(ctx context.Context, owner string, ev *model.Event) error
	Load(ctx context.Context, owner, name string) (*model.Event, uint64, error)
	Save(ctx context.Context, owner string, ev *model.Event, version uint64) error
	Delete(ctx context.Context, owner, name string) error
	List(ctx context.Context, owner string) ([]string, error)
}

// Publisher receives lifecycle messages after successful saves.
type Publisher interface {
	Publish(ctx context.Context, msg queue.LifecycleEvent) error
}

const (
	defaultMaxRetries = 5
	defaultMaxTickets = 100000
	maxKeyLength      = 191 // matches the VARCHAR width of the MySQL key columns
)

type TicketService struct {
	store      EventStore
	locker     lock.Locker
	publisher  Publisher
	maxRetries int
	maxTickets int
	digest     string
}

type Option func(*TicketService)

// WithMaxRetries sets how many times a mutation is retried after a
// version conflict.
func WithMaxRetries(n int) Option {
	return func(s *TicketService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithMaxTickets caps the number of tickets an event may hold, both at
// creation and after every extension.
func WithMaxTickets(n int) Option {
	return func(s *TicketService) {
		if n > 0 {
			s.maxTickets = n
		}
	}
}

// WithLocker serialises mutations per event key.
func WithLocker(l lock.Locker) Option {
	return func(s *TicketService) { s.locker = l }
}

// WithPublisher enables lifecycle messages.
func WithPublisher(p Publisher) Option {
	return func(s *TicketService) { s.publisher = p }
}

// WithDigest selects the digest for newly created events.
func WithDigest(alg string) Option {
	return func(s *TicketService) {
		if alg != "" {
			s.digest = alg
		}
	}
}

func NewTicketService(store EventStore, opts ...Option) *TicketService {
	svc := &TicketService{
		store:      store,
		maxRetries: defaultMaxRetries,
		maxTickets: defaultMaxTickets,
		digest:     utils.DigestSHA256,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateEvent derives count tickets from secret and stores them under
// (owner, name).  It fails with repository.ErrEventExists when the key
// is taken.
func (s *TicketService) CreateEvent(ctx context.Context, owner, secret, name string, count int) (*model.Event, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}
	if err := s.validateCount(count); err != nil {
		return nil, err
	}
	ev, err := model.NewEvent(name, secret, count, s.digest)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, owner, ev); err != nil {
		return nil, err
	}
	logger.Infof(ctx, "event %s/%s created with %d tickets", owner, name, count)
	s.publish(ctx, queue.NewLifecycleEvent(queue.TypeEventCreated, owner, ev, nil))
	return ev, nil
}

// IssueTicket sells the next unsold ticket.
func (s *TicketService) IssueTicket(ctx context.Context, owner, name string) (*model.Ticket, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}
	var issued model.Ticket
	ev, err := s.mutate(ctx, owner, name, func(ev *model.Event) (bool, error) {
		t, err := ev.IssueNext()
		if err != nil {
			return false, err
		}
		issued = t
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.NewLifecycleEvent(queue.TypeTicketIssued, owner, ev, issued.Credential))
	return &issued, nil
}

// VerifyTicket redeems the ticket carrying credential.  It reports false
// when no sold, unused ticket matches.
func (s *TicketService) VerifyTicket(ctx context.Context, owner, name string, credential []byte) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}
	var valid bool
	ev, err := s.mutate(ctx, owner, name, func(ev *model.Event) (bool, error) {
		valid = ev.Verify(credential)
		return valid, nil
	})
	if err != nil {
		return false, err
	}
	if valid {
		s.publish(ctx, queue.NewLifecycleEvent(queue.TypeTicketRedeemed, owner, ev, credential))
	}
	return valid, nil
}

// RefundTicket returns the ticket carrying credential to the pool.  It
// reports false when nothing matches and model.ErrNotSold when the
// matching ticket is unsold.
func (s *TicketService) RefundTicket(ctx context.Context, owner, name string, credential []byte) (bool, error) {
	if err := validateKey(owner, name); err != nil {
		return false, err
	}
	var refunded bool
	ev, err := s.mutate(ctx, owner, name, func(ev *model.Event) (bool, error) {
		ok, err := ev.Refund(credential)
		refunded = ok
		return ok, err
	})
	if err != nil {
		return false, err
	}
	if refunded {
		s.publish(ctx, queue.NewLifecycleEvent(queue.TypeTicketRefunded, owner, ev, credential))
	}
	return refunded, nil
}

// ExtendEvent appends additional tickets.  secret must be the one the
// event was created with, otherwise model.ErrBadSecret.
func (s *TicketService) ExtendEvent(ctx context.Context, owner, name, secret string, additional int) (*model.Event, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}
	if err := s.validateCount(additional); err != nil {
		return nil, err
	}
	ev, err := s.mutate(ctx, owner, name, func(ev *model.Event) (bool, error) {
		if ev.TotalTickets+additional > s.maxTickets {
			return false, fmt.Errorf("%w: %d+%d exceeds limit %d", ErrTooManyTickets, ev.TotalTickets, additional, s.maxTickets)
		}
		if err := ev.Extend(secret, additional); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof(ctx, "event %s/%s extended by %d to %d tickets", owner, name, additional, ev.TotalTickets)
	s.publish(ctx, queue.NewLifecycleEvent(queue.TypeEventExtended, owner, ev, nil))
	return ev, nil
}

// GetEvent loads the event without modifying it.
func (s *TicketService) GetEvent(ctx context.Context, owner, name string) (*model.Event, error) {
	if err := validateKey(owner, name); err != nil {
		return nil, err
	}
	ev, _, err := s.store.Load(ctx, owner, name)
	return ev, err
}

// DeleteEvent removes the event and all its tickets.
func (s *TicketService) DeleteEvent(ctx context.Context, owner, name string) error {
	if err := validateKey(owner, name); err != nil {
		return err
	}
	unlock, err := s.acquire(ctx, owner, name)
	if err != nil {
		return err
	}
	defer unlock()
	if err := s.store.Delete(ctx, owner, name); err != nil {
		return err
	}
	logger.Infof(ctx, "event %s/%s deleted", owner, name)
	return nil
}

// ListEvents returns the owner's event names in lexical order.
func (s *TicketService) ListEvents(ctx context.Context, owner string) ([]string, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	return s.store.List(ctx, owner)
}

// mutate runs load, apply, save.  apply reports whether it changed the
// event; unchanged events are not written back.  On a version conflict
// the whole cycle is repeated against a fresh snapshot.
func (s *TicketService) mutate(ctx context.Context, owner, name string, apply func(ev *model.Event) (bool, error)) (*model.Event, error) {
	unlock, err := s.acquire(ctx, owner, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		ev, version, err := s.store.Load(ctx, owner, name)
		if err != nil {
			return nil, err
		}
		changed, err := apply(ev)
		if err != nil {
			return nil, err
		}
		if !changed {
			return ev, nil
		}
		err = s.store.Save(ctx, owner, ev, version)
		if err == nil {
			return ev, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxRetries {
			return nil, fmt.Errorf("%w: %s/%s after %d attempts", ErrConflict, owner, name, attempt+1)
		}
		logger.Debugf(ctx, "version conflict on %s/%s (attempt %d), reloading", owner, name, attempt+1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (s *TicketService) acquire(ctx context.Context, owner, name string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, lock.Key(owner, name))
}

func (s *TicketService) publish(ctx context.Context, msg queue.LifecycleEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		logger.Warnf(ctx, "publish %s for %s/%s failed: %v", msg.Type, msg.Owner, msg.Event, err)
	}
}

func (s *TicketService) validateCount(n int) error {
	if n <= 0 {
		return model.ErrInvalidCount
	}
	if n > s.maxTickets {
		return fmt.Errorf("%w: %d exceeds limit %d", ErrTooManyTickets, n, s.maxTickets)
	}
	return nil
}

func validateOwner(owner string) error {
	if owner == "" || len(owner) > maxKeyLength {
		return ErrInvalidOwner
	}
	return nil
}

func validateKey(owner, name string) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if name == "" || len(name) > maxKeyLength || strings.Contains(name, "/") {
		return ErrInvalidName
	}
	return nil
}
