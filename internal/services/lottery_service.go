package services

import (
	"errors"
	"math/bits"
	"sync"
	"time"

	"easybet/internal/ledger"
	"easybet/internal/models"
	"easybet/internal/registry"

	"github.com/google/logger"
)

var (
	ErrUnknownRound    = errors.New("unknown lottery")
	ErrInvalidChoices  = errors.New("a lottery needs at least two choices")
	ErrInvalidChoice   = errors.New("choice index out of range")
	ErrRoundFinished   = errors.New("lottery is finished")
	ErrRoundExpired    = errors.New("lottery has expired")
	ErrNotAuthorized   = errors.New("only the lottery creator may do this")
	ErrAlreadyFinished = errors.New("lottery already finished")
	ErrNotFinished     = errors.New("lottery not finished yet")
	ErrAlreadyDeclared = errors.New("result already declared")
)

// escrowAddress holds every round's prize pool inside the ledger. Stakes
// move in on creation and ticket purchase, and out again on payout, so the
// total supply stays conserved. Payout rounding remainders and pools with
// no winning stake stay here, forfeited.
const escrowAddress = "easybet:escrow"

// LotteryService is the single serializing authority over the ledger, the
// ticket registry, and all round and order state. Every mutating operation
// takes the one lock, validates fully, then commits; a failed operation
// leaves no partial state behind.
type LotteryService struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	registry *registry.Registry

	rounds      map[uint64]*models.Round
	orders      map[uint64][]*models.Order // keyed by round id, creation order
	nextRoundID uint64                     // round ids start at 1; 0 is reserved

	now func() time.Time // swapped out in tests to drive expiry
}

// NewLotteryService wires the engine over a ledger and a ticket registry.
func NewLotteryService(l *ledger.Ledger, r *registry.Registry) *LotteryService {
	return &LotteryService{
		ledger:      l,
		registry:    r,
		rounds:      make(map[uint64]*models.Round),
		orders:      make(map[uint64][]*models.Order),
		nextRoundID: 1,
		now:         time.Now,
	}
}

// ClaimAirdrop credits the one-time grant and returns the new balance.
func (s *LotteryService) ClaimAirdrop(account string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.ClaimAirdrop(account)
}

// BalanceOf returns the account's balance and whether it has claimed the
// airdrop. Unknown accounts read as zero and unclaimed.
func (s *LotteryService) BalanceOf(account string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.BalanceOf(account), s.ledger.HasClaimed(account)
}

// CreateLottery escrows the initial prize from the creator and opens a new
// round ending duration from now. Returns the new round id.
func (s *LotteryService) CreateLottery(creator, name string, choices []string, initialPrize uint64, duration time.Duration) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(choices) < 2 {
		return 0, ErrInvalidChoices
	}
	if initialPrize == 0 {
		return 0, ledger.ErrInvalidAmount
	}
	// Last fallible step: once the escrow transfer succeeds the round is
	// committed unconditionally.
	if err := s.ledger.Transfer(creator, escrowAddress, initialPrize); err != nil {
		return 0, err
	}

	id := s.nextRoundID
	s.nextRoundID++
	round := &models.Round{
		ID:            id,
		Name:          name,
		Choices:       append([]string(nil), choices...),
		InitialPrize:  initialPrize,
		EndTime:       s.now().Add(duration),
		Creator:       creator,
		PrizePool:     initialPrize,
		StakeByChoice: make([]uint64, len(choices)),
	}
	s.rounds[id] = round

	logger.Infof("lottery created: id=%d name=%q choices=%v prize=%d endTime=%s",
		id, name, round.Choices, initialPrize, round.EndTime.Format(time.RFC3339))
	return id, nil
}

// BuyTicket stakes amount on one choice of an open, unexpired round and
// mints the ticket. The debit, the pool credit, the stake tally and the
// mint all commit together or not at all.
func (s *LotteryService) BuyTicket(buyer string, roundID uint64, choiceIndex uint32, amount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return 0, ErrUnknownRound
	}
	if round.IsFinished {
		return 0, ErrRoundFinished
	}
	if !s.now().Before(round.EndTime) {
		return 0, ErrRoundExpired
	}
	if int(choiceIndex) >= len(round.Choices) {
		return 0, ErrInvalidChoice
	}
	if amount == 0 {
		return 0, ledger.ErrInvalidAmount
	}
	if err := s.ledger.Transfer(buyer, escrowAddress, amount); err != nil {
		return 0, err
	}

	round.PrizePool += amount
	round.StakeByChoice[choiceIndex] += amount
	ticketID := s.registry.Mint(buyer, roundID, choiceIndex, amount)

	logger.Infof("ticket minted: id=%d round=%d choice=%d stake=%d owner=%s",
		ticketID, roundID, choiceIndex, amount, buyer)
	return ticketID, nil
}

// FinishLottery closes a round to further staking. Only the creator may
// call it, and it may be called before the end time (early close).
func (s *LotteryService) FinishLottery(caller string, roundID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return ErrUnknownRound
	}
	if round.Creator != caller {
		return ErrNotAuthorized
	}
	if round.IsFinished {
		return ErrAlreadyFinished
	}
	round.IsFinished = true
	return nil
}

// DeclareResult records the winning choice of a finished round and pays the
// prize pool out to winning tickets, proportional to stake with floor
// rounding. The division remainder stays in escrow, forfeited; if nobody
// staked on the winning choice the whole pool is forfeited.
func (s *LotteryService) DeclareResult(caller string, roundID uint64, winningChoice uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return ErrUnknownRound
	}
	if round.Creator != caller {
		return ErrNotAuthorized
	}
	if !round.IsFinished {
		return ErrNotFinished
	}
	if round.IsResultDeclared {
		return ErrAlreadyDeclared
	}
	if int(winningChoice) >= len(round.Choices) {
		return ErrInvalidChoice
	}

	round.WinningChoice = winningChoice
	round.IsResultDeclared = true

	winStake := round.StakeByChoice[winningChoice]
	if winStake == 0 {
		logger.Infof("lottery %d: no stake on winning choice %d, pool %d forfeited",
			roundID, winningChoice, round.PrizePool)
		return nil
	}
	var paid uint64
	for _, t := range s.registry.TicketsByRound(roundID) {
		if t.ChoiceIndex != winningChoice {
			continue
		}
		share := mulDiv(t.StakedAmount, round.PrizePool, winStake)
		if share == 0 {
			continue
		}
		// Cannot fail: the shares sum to at most PrizePool, which the
		// escrow account holds in full.
		if err := s.ledger.Transfer(escrowAddress, t.Owner, share); err != nil {
			return err
		}
		paid += share
	}
	logger.Infof("lottery %d: result declared, choice=%d pool=%d paid=%d remainder=%d",
		roundID, winningChoice, round.PrizePool, paid, round.PrizePool-paid)
	return nil
}

// mulDiv computes a*b/c with a 128-bit intermediate so stake*pool cannot
// overflow. The quotient always fits: a <= c, so a*b/c <= b.
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// GetLotteryInfo returns the read-only projection of one round.
func (s *LotteryService) GetLotteryInfo(roundID uint64) (models.RoundInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return models.RoundInfo{}, ErrUnknownRound
	}
	return s.roundInfo(round), nil
}

// ListLotteries returns every round's projection in creation order.
func (s *LotteryService) ListLotteries() []models.RoundInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RoundInfo, 0, len(s.rounds))
	for id := uint64(1); id < s.nextRoundID; id++ {
		out = append(out, s.roundInfo(s.rounds[id]))
	}
	return out
}

// GetCurrentPrizePool returns one round's escrowed pool. The pool is
// strictly per round; there is no global pool.
func (s *LotteryService) GetCurrentPrizePool(roundID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return 0, ErrUnknownRound
	}
	return round.PrizePool, nil
}

// TicketsOwnedBy returns the caller's tickets joined with round state, in
// mint order.
func (s *LotteryService) TicketsOwnedBy(owner string) []models.TicketInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.registry.TicketsOwnedBy(owner)
	out := make([]models.TicketInfo, 0, len(ids))
	for _, id := range ids {
		t, err := s.registry.Metadata(id)
		if err != nil {
			continue
		}
		info := models.TicketInfo{Ticket: t}
		if round, ok := s.rounds[t.RoundID]; ok {
			info.RoundName = round.Name
			info.Choice = round.Choices[t.ChoiceIndex]
			info.IsResultDeclared = round.IsResultDeclared
			info.IsWinner = round.IsResultDeclared && round.WinningChoice == t.ChoiceIndex
		}
		out = append(out, info)
	}
	return out
}

// CountRounds reports open, expired-but-open and settled round counts for
// the periodic sweep log. Expiry is derived here from the clock, never
// written back to round state.
func (s *LotteryService) CountRounds() (open, expired, settled int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, round := range s.rounds {
		switch {
		case round.IsFinished: // declared results imply finished
			settled++
		case now.Before(round.EndTime):
			open++
		default:
			expired++
		}
	}
	return open, expired, settled
}

func (s *LotteryService) roundInfo(round *models.Round) models.RoundInfo {
	info := models.RoundInfo{
		ID:               round.ID,
		Name:             round.Name,
		Choices:          append([]string(nil), round.Choices...),
		InitialPrize:     round.InitialPrize,
		EndTime:          round.EndTime,
		Creator:          round.Creator,
		IsFinished:       round.IsFinished,
		IsExpired:        !s.now().Before(round.EndTime),
		IsResultDeclared: round.IsResultDeclared,
		PrizePool:        round.PrizePool,
		StakeByChoice:    append([]uint64(nil), round.StakeByChoice...),
	}
	if round.IsResultDeclared {
		w := round.WinningChoice
		info.WinningChoice = &w
	}
	return info
}
