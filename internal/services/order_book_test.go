package services

import (
	"testing"
	"time"

	"easybet/internal/ledger"
	"easybet/internal/registry"

	"github.com/stretchr/testify/require"
)

// marketFixture: one open round, seller holding ticket 1 with a 50 stake.
func marketFixture(t *testing.T) (*LotteryService, *ledger.Ledger, uint64, uint64) {
	t.Helper()
	s, l, _ := newTestService(t)
	fund(t, s, "creator", "seller", "buyer")
	roundID, err := s.CreateLottery("creator", "R1", []string{"x", "y"}, 100, time.Hour)
	require.NoError(t, err)
	ticketID, err := s.BuyTicket("seller", roundID, 0, 50)
	require.NoError(t, err)
	return s, l, roundID, ticketID
}

func TestPlaceOrder(t *testing.T) {
	s, _, roundID, ticketID := marketFixture(t)

	t.Run("unknown ticket", func(t *testing.T) {
		_, _, err := s.PlaceOrder("seller", 99, 10)
		require.ErrorIs(t, err, registry.ErrUnknownTicket)
	})

	t.Run("only the owner may list", func(t *testing.T) {
		_, _, err := s.PlaceOrder("buyer", ticketID, 10)
		require.ErrorIs(t, err, registry.ErrNotOwner)
	})

	t.Run("zero price is rejected", func(t *testing.T) {
		_, _, err := s.PlaceOrder("seller", ticketID, 0)
		require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	})

	t.Run("order ids are sequential within the round", func(t *testing.T) {
		gotRound, orderID, err := s.PlaceOrder("seller", ticketID, 60)
		require.NoError(t, err)
		require.Equal(t, roundID, gotRound)
		require.Equal(t, uint64(1), orderID)

		_, orderID, err = s.PlaceOrder("seller", ticketID, 70)
		require.NoError(t, err)
		require.Equal(t, uint64(2), orderID)

		book, err := s.GetOrderBook(roundID)
		require.NoError(t, err)
		require.Len(t, book, 2)
		require.True(t, book[0].Active)
		require.Equal(t, uint64(60), book[0].Price)
	})
}

func TestBuyOrder(t *testing.T) {
	s, l, roundID, ticketID := marketFixture(t)
	_, orderID, err := s.PlaceOrder("seller", ticketID, 60)
	require.NoError(t, err)

	t.Run("unknown order", func(t *testing.T) {
		require.ErrorIs(t, s.BuyOrder("buyer", roundID, 99), ErrUnknownOrder)
		require.ErrorIs(t, s.BuyOrder("buyer", roundID, 0), ErrUnknownOrder)
	})

	t.Run("seller cannot buy their own listing", func(t *testing.T) {
		require.ErrorIs(t, s.BuyOrder("seller", roundID, orderID), ErrSelfTrade)
	})

	t.Run("insufficient balance aborts before any registry change", func(t *testing.T) {
		fund(t, s, "pauper")
		_, expensive, err := s.PlaceOrder("seller", ticketID, 5000)
		require.NoError(t, err)
		require.ErrorIs(t, s.BuyOrder("pauper", roundID, expensive), ledger.ErrInsufficientBalance)

		meta, err := s.registry.Metadata(ticketID)
		require.NoError(t, err)
		require.Equal(t, "seller", meta.Owner)
		require.Equal(t, uint64(1000), l.BalanceOf("pauper"))
	})

	t.Run("settlement moves funds and ownership together", func(t *testing.T) {
		require.NoError(t, s.BuyOrder("buyer", roundID, orderID))

		meta, err := s.registry.Metadata(ticketID)
		require.NoError(t, err)
		require.Equal(t, "buyer", meta.Owner)
		require.Equal(t, uint64(50), meta.StakedAmount) // stake untouched by resale
		require.Equal(t, uint64(1000-50+60), l.BalanceOf("seller"))
		require.Equal(t, uint64(1000-60), l.BalanceOf("buyer"))

		book, err := s.GetOrderBook(roundID)
		require.NoError(t, err)
		require.False(t, book[orderID-1].Active)
	})

	t.Run("settled order cannot be bought again", func(t *testing.T) {
		fund(t, s, "other")
		require.ErrorIs(t, s.BuyOrder("other", roundID, orderID), ErrUnknownOrder)
	})

	t.Run("stale listing by the previous owner is deactivated", func(t *testing.T) {
		// The 5000-price order still names "seller", but the ticket now
		// belongs to "buyer".
		book, err := s.GetOrderBook(roundID)
		require.NoError(t, err)
		stale := book[1]
		require.True(t, stale.Active)
		require.ErrorIs(t, s.BuyOrder("other", roundID, stale.ID), ErrUnknownOrder)

		book, err = s.GetOrderBook(roundID)
		require.NoError(t, err)
		require.False(t, book[1].Active)
	})
}

func TestGetOrderBookUnknownRound(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.GetOrderBook(99)
	require.ErrorIs(t, err, ErrUnknownRound)
}

// Resale settles between peers only: the pool and total supply never move.
func TestResaleConservesSupplyAndPool(t *testing.T) {
	s, l, roundID, ticketID := marketFixture(t)
	before := l.TotalSupply()

	_, orderID, err := s.PlaceOrder("seller", ticketID, 60)
	require.NoError(t, err)
	require.NoError(t, s.BuyOrder("buyer", roundID, orderID))

	require.Equal(t, before, l.TotalSupply())
	pool, err := s.GetCurrentPrizePool(roundID)
	require.NoError(t, err)
	require.Equal(t, uint64(150), pool)

	// The new owner collects the payout on the resold ticket.
	require.NoError(t, s.FinishLottery("creator", roundID))
	require.NoError(t, s.DeclareResult("creator", roundID, 0))
	require.Equal(t, uint64(1000-60+150), l.BalanceOf("buyer"))
}
