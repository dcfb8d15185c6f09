// Package memory is an in-process implementation of the repository
// interfaces with the same locking and error semantics as the PostgreSQL
// store. It backs service tests and APP_STORAGE=memory local runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/MarlyH/CorpsAPI-sub000/internal/domain"
	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
)

var errTxRequired = errors.New("row lock requested outside a transaction")

type waitKey struct {
	eventID string
	userID  string
}

type bookingRow struct {
	booking domain.Booking
	seq     int64
}

type waitRow struct {
	entry domain.WaitlistEntry
	seq   int64
}

type outboxRow struct {
	msg domain.OutboxMessage
	seq int64
}

// Store holds all rows in maps guarded by mu. Row locks taken by
// GetForUpdate and by writes live in a separate lock table so waiting on a
// row never blocks unrelated readers.
type Store struct {
	mu        sync.Mutex
	seq       int64
	events    map[string]*domain.Event
	bookings  map[string]*bookingRow
	tokens    map[string]string
	users     map[string]*domain.User
	children  map[string]*domain.Child
	waitlist  map[waitKey]*waitRow
	outbox    map[string]*outboxRow
	outboxErr error

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		events:   make(map[string]*domain.Event),
		bookings: make(map[string]*bookingRow),
		tokens:   make(map[string]string),
		users:    make(map[string]*domain.User),
		children: make(map[string]*domain.Child),
		waitlist: make(map[waitKey]*waitRow),
		outbox:   make(map[string]*outboxRow),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Tx:       s,
		Events:   &eventRepo{s: s},
		Bookings: &bookingRepo{s: s},
		Users:    &userRepo{s: s},
		Children: &childRepo{s: s},
		Waitlist: &waitlistRepo{s: s},
		Outbox:   &outboxRepo{s: s},
	}
}

type txKey struct{}

type txState struct {
	held map[string]*sync.Mutex
	undo []func()
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithTx runs fn as one unit. Row locks acquired inside fn are held until
// it returns; on error every write made through the transaction's context
// is undone in reverse order.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txState{held: make(map[string]*sync.Mutex)}
	err := fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
	}
	for _, m := range tx.held {
		m.Unlock()
	}
	return err
}

func (s *Store) rowLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// acquire takes the row lock for key. Inside a transaction the lock is kept
// until the transaction ends; outside one the caller must call release.
func (s *Store) acquire(ctx context.Context, key string) (release func()) {
	tx := txFrom(ctx)
	if tx != nil {
		if _, ok := tx.held[key]; ok {
			return func() {}
		}
	}

	m := s.rowLock(key)
	m.Lock()
	if tx != nil {
		tx.held[key] = m
		return func() {}
	}
	return m.Unlock
}

// record registers undo for the surrounding transaction. Callers hold s.mu.
func (s *Store) record(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func eventKey(id string) string { return "event:" + id }
func userKey(id string) string  { return "user:" + id }

// PutUser inserts or replaces a user record
func (s *Store) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutChild inserts or replaces a child record
func (s *Store) PutChild(c *domain.Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.children[c.ID] = &cp
}

// FailOutboxWith makes every subsequent outbox insert fail with err; nil
// restores normal behaviour
func (s *Store) FailOutboxWith(err error) {
	s.mu.Lock()
	s.outboxErr = err
	s.mu.Unlock()
}

// OutboxMessages returns every stored message in insertion order
func (s *Store) OutboxMessages() []*domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*outboxRow, 0, len(s.outbox))
	for _, r := range s.outbox {
		rows = append(rows, r)
	}
	sortBySeq(rows, func(r *outboxRow) int64 { return r.seq })

	out := make([]*domain.OutboxMessage, len(rows))
	for i, r := range rows {
		cp := r.msg
		out[i] = &cp
	}
	return out
}

var _ repository.TxManager = (*Store)(nil)
