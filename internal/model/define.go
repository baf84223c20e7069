package model

import "fmt"

// Bank is the pseudo player id used as counterparty for bank-sourced
// transfers (pass-go bonus, taxes, purchases, auction proceeds).
const Bank int32 = 0

const (
	BoardSize     = 40
	JailPos       = 10
	GoToJailPos   = 30
	MaxLevel      = 5 // level 5 is a hotel
	MaxPlayers    = 8
	MaxDoubles    = 3 // third consecutive double sends the roller to jail
	MaxJailTurns  = 3 // third failed escape roll pays the fine and moves
	PassGoBonus   = 200
	JailFine      = 50
	MinBid        = 1 // minimum auction bid increment
	StartingMoney = 1500
)

// Conventional defaults for the source-ambiguous constants; documented in
// DESIGN.md. Mortgage advances half the price, redemption adds 10% interest,
// demolition refunds half the house cost.
const (
	MortgageNum, MortgageDen = 1, 2
	InterestNum, InterestDen = 11, 10
	RefundNum, RefundDen     = 1, 2
)

// Phase is the turn state machine position of one game.
type Phase int32

const (
	PhAwaitRoll   Phase = iota // current player must roll
	PhAwaitAction              // current player landed on an unowned square: buy or decline
	PhAuction                  // bidding window open
	PhTrade                    // trade response window open
	PhGameOver                 // exactly one non-bankrupt player remains
)

var phaseNames = map[Phase]string{
	PhAwaitRoll:   "AwaitRoll",
	PhAwaitAction: "AwaitAction",
	PhAuction:     "Auction",
	PhTrade:       "Trade",
	PhGameOver:    "GameOver",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// SquareType enumerates the ten square kinds of the fixed 40-entry board.
type SquareType int32

const (
	SqGo SquareType = iota
	SqProperty
	SqRailroad
	SqUtility
	SqChance
	SqChest
	SqTax
	SqJustVisiting
	SqGoToJail
	SqFreeParking
)

var squareTypeNames = map[SquareType]string{
	SqGo:           "go",
	SqProperty:     "property",
	SqRailroad:     "railroad",
	SqUtility:      "utility",
	SqChance:       "chance",
	SqChest:        "community-chest",
	SqTax:          "tax",
	SqJustVisiting: "just-visiting",
	SqGoToJail:     "go-to-jail",
	SqFreeParking:  "free-parking",
}

func (t SquareType) String() string {
	if name, ok := squareTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SquareType(%d)", t)
}

// Priced reports whether landing on an unowned square of this type opens a
// buy-or-auction decision.
func (t SquareType) Priced() bool {
	return t == SqProperty || t == SqRailroad || t == SqUtility
}
