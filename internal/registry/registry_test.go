package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMintAssignsSequentialIDs(t *testing.T) {
	r := New()

	first := r.Mint("alice", 1, 0, 50)
	second := r.Mint("bob", 1, 1, 75)
	third := r.Mint("alice", 2, 0, 10)

	require.Equal(t, uint64(1), first)
	require.Equal(t, uint64(2), second)
	require.Equal(t, uint64(3), third)

	meta, err := r.Metadata(second)
	require.NoError(t, err)
	require.Equal(t, "bob", meta.Owner)
	require.Equal(t, uint64(1), meta.RoundID)
	require.Equal(t, uint32(1), meta.ChoiceIndex)
	require.Equal(t, uint64(75), meta.StakedAmount)
}

func TestTransferOwnership(t *testing.T) {
	r := New()
	id := r.Mint("alice", 1, 0, 50)

	t.Run("unknown ticket", func(t *testing.T) {
		require.ErrorIs(t, r.TransferOwnership(99, "alice", "bob"), ErrUnknownTicket)
	})

	t.Run("wrong current owner", func(t *testing.T) {
		require.ErrorIs(t, r.TransferOwnership(id, "bob", "carol"), ErrNotOwner)
	})

	t.Run("reassigns owner, keeps metadata", func(t *testing.T) {
		require.NoError(t, r.TransferOwnership(id, "alice", "bob"))
		meta, err := r.Metadata(id)
		require.NoError(t, err)
		require.Equal(t, "bob", meta.Owner)
		require.Equal(t, uint64(50), meta.StakedAmount)
	})
}

func TestTicketsOwnedBy(t *testing.T) {
	r := New()
	a1 := r.Mint("alice", 1, 0, 10)
	r.Mint("bob", 1, 1, 20)
	a2 := r.Mint("alice", 2, 0, 30)

	require.Equal(t, []uint64{a1, a2}, r.TicketsOwnedBy("alice"))
	require.Empty(t, r.TicketsOwnedBy("carol"))

	require.NoError(t, r.TransferOwnership(a1, "alice", "carol"))
	require.Equal(t, []uint64{a2}, r.TicketsOwnedBy("alice"))
	require.Equal(t, []uint64{a1}, r.TicketsOwnedBy("carol"))
}

func TestTicketsByRound(t *testing.T) {
	r := New()
	r.Mint("alice", 1, 0, 10)
	r.Mint("bob", 2, 0, 20)
	r.Mint("carol", 1, 1, 30)

	tickets := r.TicketsByRound(1)
	require.Len(t, tickets, 2)
	require.Equal(t, "alice", tickets[0].Owner)
	require.Equal(t, "carol", tickets[1].Owner)
	require.Empty(t, r.TicketsByRound(3))
}

func TestMetadataUnknownTicket(t *testing.T) {
	r := New()
	_, err := r.Metadata(1)
	require.ErrorIs(t, err, ErrUnknownTicket)
}
