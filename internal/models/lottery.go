package models

import "time"

// Account holds a fungible token balance. Accounts are created lazily on
// first reference and never destroyed.
type Account struct {
	Address        string `json:"address"`
	Balance        uint64 `json:"balance"`
	AirdropClaimed bool   `json:"airdropClaimed"`
}

// Round is a single lottery: a fixed set of choices, an escrowed prize pool,
// and an end time. Rounds are append-only history and are never deleted.
type Round struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Choices      []string  `json:"choices"`
	InitialPrize uint64    `json:"initialPrize"`
	EndTime      time.Time `json:"endTime"`
	Creator      string    `json:"creator"`

	IsFinished       bool   `json:"isFinished"`
	IsResultDeclared bool   `json:"isResultDeclared"`
	WinningChoice    uint32 `json:"winningChoice"` // meaningful only when IsResultDeclared

	// PrizePool = InitialPrize + sum of all stakes placed on this round.
	PrizePool uint64 `json:"prizePool"`
	// StakeByChoice tallies the cumulative stake per choice index.
	StakeByChoice []uint64 `json:"stakeByChoice"`
}

// Ticket is a non-fungible record of one stake on one choice of one round.
// Everything except Owner is immutable after mint.
type Ticket struct {
	ID           uint64 `json:"id"`
	Owner        string `json:"owner"`
	RoundID      uint64 `json:"roundId"`
	ChoiceIndex  uint32 `json:"choiceIndex"`
	StakedAmount uint64 `json:"stakedAmount"`
}

// Order is a resale listing offering a specific ticket for a fixed price.
// Order ids are sequential within their round.
type Order struct {
	ID       uint64 `json:"id"`
	TicketID uint64 `json:"ticketId"`
	Seller   string `json:"seller"`
	Price    uint64 `json:"price"`
	Active   bool   `json:"active"`
}

// RoundInfo is the read-only projection of a round returned to callers.
// IsExpired is derived from the clock at projection time, never stored.
type RoundInfo struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Choices          []string  `json:"choices"`
	InitialPrize     uint64    `json:"initialPrize"`
	EndTime          time.Time `json:"endTime"`
	Creator          string    `json:"creator"`
	IsFinished       bool      `json:"isFinished"`
	IsExpired        bool      `json:"isExpired"`
	IsResultDeclared bool      `json:"isResultDeclared"`
	WinningChoice    *uint32   `json:"winningChoice,omitempty"`
	PrizePool        uint64    `json:"prizePool"`
	StakeByChoice    []uint64  `json:"stakeByChoice"`
}

// TicketInfo joins a ticket with the state of its round, the shape the
// "my tickets" view renders.
type TicketInfo struct {
	Ticket
	RoundName        string `json:"roundName"`
	Choice           string `json:"choice"`
	IsResultDeclared bool   `json:"isResultDeclared"`
	IsWinner         bool   `json:"isWinner"`
}
