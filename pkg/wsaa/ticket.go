package wsaa

import (
	"sync"
	"time"
)

// AccessTicket is the credential proving a successful authentication.
// Immutable once created.
type AccessTicket struct {
	Token      string
	Sign       string
	Expiration time.Time
}

// TicketStore holds zero or one access ticket. Safe for concurrent use.
type TicketStore struct {
	mu     sync.Mutex
	ticket *AccessTicket
}

// NewTicketStore returns an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{}
}

// Current returns the stored ticket if it is still valid at the given
// instant. Expiration is checked at time of use, not at cache-write
// time.
func (s *TicketStore) Current(now time.Time) (*AccessTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticket == nil || !now.Before(s.ticket.Expiration) {
		return nil, false
	}
	return s.ticket, true
}

// Set stores a ticket, replacing any previous one.
func (s *TicketStore) Set(ticket *AccessTicket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket = ticket
}

// Invalidate discards the stored ticket. Used when the credential
// configuration changes out from under a running client.
func (s *TicketStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticket = nil
}
