package services

import (
	"errors"

	"easybet/internal/ledger"
	"easybet/internal/models"
	"easybet/internal/registry"

	"github.com/google/logger"
)

var (
	ErrUnknownOrder = errors.New("unknown or inactive order")
	ErrSelfTrade    = errors.New("cannot buy your own order")
)

// PlaceOrder lists a ticket for resale at a fixed price. The order id is
// sequential within the ticket's round. Returns the round id alongside the
// order id so callers can address the listing.
func (s *LotteryService) PlaceOrder(seller string, ticketID, price uint64) (roundID, orderID uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.registry.Metadata(ticketID)
	if err != nil {
		return 0, 0, err
	}
	if t.Owner != seller {
		return 0, 0, registry.ErrNotOwner
	}
	if price == 0 {
		return 0, 0, ledger.ErrInvalidAmount
	}

	book := s.orders[t.RoundID]
	order := &models.Order{
		ID:       uint64(len(book)) + 1,
		TicketID: ticketID,
		Seller:   seller,
		Price:    price,
		Active:   true,
	}
	s.orders[t.RoundID] = append(book, order)

	logger.Infof("order placed: round=%d order=%d ticket=%d price=%d seller=%s",
		t.RoundID, order.ID, ticketID, price, seller)
	return t.RoundID, order.ID, nil
}

// BuyOrder settles a listing: price moves from buyer to seller through the
// ledger, then the ticket changes owner through the registry, then the
// order deactivates. The fund transfer is the last fallible step, so a
// failed settlement leaves ownership and the book untouched.
func (s *LotteryService) BuyOrder(buyer string, roundID, orderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := s.orders[roundID]
	if orderID == 0 || orderID > uint64(len(book)) {
		return ErrUnknownOrder
	}
	order := book[orderID-1]
	if !order.Active {
		return ErrUnknownOrder
	}
	if order.Seller == buyer {
		return ErrSelfTrade
	}
	t, err := s.registry.Metadata(order.TicketID)
	if err != nil {
		return err
	}
	if t.Owner != order.Seller {
		// The ticket changed hands since listing; the order is stale.
		order.Active = false
		return ErrUnknownOrder
	}
	if err := s.ledger.Transfer(buyer, order.Seller, order.Price); err != nil {
		return err
	}
	// Cannot fail: ownership was verified above under the same lock.
	if err := s.registry.TransferOwnership(order.TicketID, order.Seller, buyer); err != nil {
		return err
	}
	order.Active = false

	logger.Infof("order settled: round=%d order=%d ticket=%d price=%d %s->%s",
		roundID, orderID, order.TicketID, order.Price, order.Seller, buyer)
	return nil
}

// GetOrderBook returns every order placed against a round, active and
// settled, in creation order.
func (s *LotteryService) GetOrderBook(roundID uint64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rounds[roundID]; !ok {
		return nil, ErrUnknownRound
	}
	book := s.orders[roundID]
	out := make([]models.Order, 0, len(book))
	for _, order := range book {
		out = append(out, *order)
	}
	return out, nil
}
