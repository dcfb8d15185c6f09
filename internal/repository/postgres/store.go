package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarlyH/CorpsAPI-sub000/internal/repository"
)

// NewStore wires every PostgreSQL repository onto one pool
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Tx:       NewTxManager(pool),
		Events:   NewEventRepository(pool),
		Bookings: NewBookingRepository(pool),
		Users:    NewUserRepository(pool),
		Children: NewChildRepository(pool),
		Waitlist: NewWaitlistRepository(pool),
		Outbox:   NewOutboxRepository(pool),
	}
}

var (
	_ repository.TxManager          = (*TxManager)(nil)
	_ repository.EventRepository    = (*EventRepository)(nil)
	_ repository.BookingRepository  = (*BookingRepository)(nil)
	_ repository.UserRepository     = (*UserRepository)(nil)
	_ repository.ChildRepository    = (*ChildRepository)(nil)
	_ repository.WaitlistRepository = (*WaitlistRepository)(nil)
	_ repository.OutboxRepository   = (*OutboxRepository)(nil)
)
