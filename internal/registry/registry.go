package registry

import (
	"errors"

	"easybet/internal/models"
)

var (
	// ErrUnknownTicket is returned for lookups of ids that were never minted.
	ErrUnknownTicket = errors.New("unknown ticket")

	// ErrNotOwner is returned when a transfer names the wrong current owner.
	ErrNotOwner = errors.New("not the ticket owner")
)

// Registry tracks ownership and immutable metadata of non-fungible tickets.
// Ticket ids are globally sequential starting at 1; tickets are never burned.
//
// Like the ledger, it relies on the caller for serialization.
type Registry struct {
	tickets map[uint64]*models.Ticket
	nextID  uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		tickets: make(map[uint64]*models.Ticket),
		nextID:  1,
	}
}

// Mint records a new ticket and returns its id. It moves no funds; the
// lottery service escrows the stake before minting.
func (r *Registry) Mint(owner string, roundID uint64, choiceIndex uint32, stakedAmount uint64) uint64 {
	id := r.nextID
	r.nextID++
	r.tickets[id] = &models.Ticket{
		ID:           id,
		Owner:        owner,
		RoundID:      roundID,
		ChoiceIndex:  choiceIndex,
		StakedAmount: stakedAmount,
	}
	return id
}

// TransferOwnership reassigns a ticket from its current owner to another
// account. Pure ownership change; price settlement happens in the ledger.
func (r *Registry) TransferOwnership(ticketID uint64, from, to string) error {
	t, ok := r.tickets[ticketID]
	if !ok {
		return ErrUnknownTicket
	}
	if t.Owner != from {
		return ErrNotOwner
	}
	t.Owner = to
	return nil
}

// TicketsOwnedBy returns the ids of all tickets currently owned by addr,
// in mint order.
func (r *Registry) TicketsOwnedBy(addr string) []uint64 {
	ids := make([]uint64, 0)
	for id := uint64(1); id < r.nextID; id++ {
		if r.tickets[id].Owner == addr {
			ids = append(ids, id)
		}
	}
	return ids
}

// TicketsByRound returns copies of every ticket minted against roundID,
// in mint order.
func (r *Registry) TicketsByRound(roundID uint64) []models.Ticket {
	out := make([]models.Ticket, 0)
	for id := uint64(1); id < r.nextID; id++ {
		if t := r.tickets[id]; t.RoundID == roundID {
			out = append(out, *t)
		}
	}
	return out
}

// Metadata returns a copy of the ticket record.
func (r *Registry) Metadata(ticketID uint64) (models.Ticket, error) {
	t, ok := r.tickets[ticketID]
	if !ok {
		return models.Ticket{}, ErrUnknownTicket
	}
	return *t, nil
}
