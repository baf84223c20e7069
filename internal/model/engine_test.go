package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gamehall/monopoly/pkg/codes"
)

func newTestGame(t *testing.T, r Roller, names ...string) (*Engine, *State) {
	t.Helper()
	e := NewEngine(r)
	s := NewState("g-test", r)
	for _, n := range names {
		_, _, err := e.AddPlayer(s, n, "", false)
		require.NoError(t, err)
	}
	return e, s
}

func TestAddPlayer(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	require.Len(t, s.Players, 2)
	require.Equal(t, int32(1), s.Current)
	require.Equal(t, int64(StartingMoney), s.Players[0].Money)

	for i := 2; i < MaxPlayers; i++ {
		_, _, err := e.AddPlayer(s, "x", "", false)
		require.NoError(t, err)
	}
	_, _, err := e.AddPlayer(s, "overflow", "", false)
	require.ErrorIs(t, err, codes.ErrGameFull)
}

func TestRollTurnValidation(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob")

	_, err := e.RollDice(s, 2)
	require.ErrorIs(t, err, codes.ErrNotYourTurn)

	_, err = e.RollDice(s, 99)
	require.ErrorIs(t, err, codes.ErrPlayerNotFound)

	_, err = e.EndTurn(s, 1)
	require.ErrorIs(t, err, codes.ErrWrongPhase) // nothing rolled yet
}

// A walk past Go pays the bonus exactly once and wraps the position.
func TestMoveWrapsWithSingleBonus(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{2, 4}}}, "alice", "bob")
	p := s.Players[0]
	p.Pos = 35

	evs, err := e.RollDice(s, 1)
	require.NoError(t, err)

	require.Equal(t, int32(1), p.Pos)
	require.Equal(t, int64(StartingMoney+PassGoBonus), p.Money)

	var bonuses int
	for _, ev := range evs {
		if ev.Type == "money.transfer" && ev.Payload["reason"] == "pass go" {
			bonuses++
		}
	}
	require.Equal(t, 1, bonuses)

	// landed on unowned Mediterranean Avenue: buy window opens
	require.Equal(t, PhAwaitAction, s.Phase)
	require.Equal(t, int32(1), s.PendingBuy)
}

func TestBuyAndRentFlow(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}, {1, 2}}}, "alice", "bob")

	// alice lands on Baltic Avenue (3) and buys it
	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.Equal(t, int32(3), s.PendingBuy)

	_, err = e.Buy(s, 1)
	require.NoError(t, err)
	require.Equal(t, int32(1), s.Squares[3].Owner)
	require.Equal(t, int64(StartingMoney-60), s.Players[0].Money)
	require.Equal(t, int32(2), s.Current) // turn auto-advanced

	// bob lands on the same square and pays base rent
	_, err = e.RollDice(s, 2)
	require.NoError(t, err)
	require.Equal(t, int64(StartingMoney-4), s.Players[1].Money)
	require.Equal(t, int64(StartingMoney-60+4), s.Players[0].Money)
	require.Equal(t, int32(1), s.Current)
}

func TestNoRentOnMortgagedSquare(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob")
	s.Squares[3].Owner = 2
	s.Squares[3].Mortgaged = true

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.Equal(t, int64(StartingMoney), s.Players[0].Money)
}

func TestDoublesGrantExtraRollThreeJail(t *testing.T) {
	rolls := [][2]int32{{4, 4}, {1, 1}, {5, 5}}
	e, s := newTestGame(t, &ScriptRoller{Rolls: rolls}, "alice", "bob")
	p := s.Players[0]

	// first double: lands on Vermont Avenue (8), extra roll granted
	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.NoError(t, declineIfPending(e, s, 1))
	require.Equal(t, int32(1), s.Current)
	require.False(t, s.Rolled)

	// second double: Just Visiting (10)
	_, err = e.RollDice(s, 1)
	require.NoError(t, err)
	require.Equal(t, int32(10), p.Pos)
	require.Equal(t, int32(1), s.Current)

	// third double: straight to jail, no movement, turn forfeited
	_, err = e.RollDice(s, 1)
	require.NoError(t, err)
	require.True(t, p.InJail)
	require.Equal(t, int32(JailPos), p.Pos)
	require.Equal(t, int32(2), s.Current)
	require.False(t, s.ExtraRoll)
}

// declineIfPending clears a buy window opened mid-scenario; the auction it
// opens is force-closed with no bids.
func declineIfPending(e *Engine, s *State, pid int32) error {
	if s.PendingBuy < 0 {
		return nil
	}
	if _, err := e.Decline(s, pid); err != nil {
		return err
	}
	for _, p := range s.Alive() {
		if s.Auction == nil {
			break
		}
		if _, err := e.PassAuction(s, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func TestJailEscapeByDouble(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{3, 3}}}, "alice", "bob")
	p := s.Players[0]
	p.InJail = true
	p.Pos = JailPos

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.False(t, p.InJail)
	require.Equal(t, int32(16), p.Pos)
	require.Equal(t, int64(StartingMoney), p.Money) // no fine on a double
	require.NoError(t, declineIfPending(e, s, 1))
	// escape double grants no extra roll
	require.Equal(t, int32(2), s.Current)
}

func TestJailThirdRollPaysFineAndMoves(t *testing.T) {
	// every roll replays the 1+2 default, never a double
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob", "carol")
	p := s.Players[0]
	p.InJail = true
	p.Pos = JailPos

	for i := 0; i < 2; i++ {
		_, err := e.RollDice(s, 1)
		require.NoError(t, err)
		require.True(t, p.InJail)
		require.Equal(t, int32(i+1), p.JailTurns)
		// burn the other players' turns back to alice
		for s.Current != 1 {
			_, err = e.RollDice(s, s.Current)
			require.NoError(t, err)
			require.NoError(t, declineIfPending(e, s, s.Current))
			if s.Current != 1 && s.Rolled {
				_, err = e.EndTurn(s, s.Current)
				require.NoError(t, err)
			}
		}
	}

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.False(t, p.InJail)
	require.Equal(t, int32(13), p.Pos)
	require.Equal(t, int64(StartingMoney-JailFine), p.Money)
}

func TestUseJailCard(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 3}}}, "alice", "bob")
	p := s.Players[0]
	p.InJail = true
	p.Pos = JailPos
	p.JailCards = 1

	_, err := e.UseJailCard(s, 1)
	require.NoError(t, err)
	require.False(t, p.InJail)
	require.Equal(t, int32(0), p.JailCards)

	// still this player's roll
	_, err = e.RollDice(s, 1)
	require.NoError(t, err)
	require.Equal(t, int32(14), p.Pos)
}

func TestAuctionHighestBidWins(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob", "carol")

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Decline(s, 1)
	require.NoError(t, err)
	require.Equal(t, PhAuction, s.Phase)

	_, err = e.Bid(s, 2, 50)
	require.NoError(t, err)
	_, err = e.Bid(s, 3, 80)
	require.NoError(t, err)

	_, err = e.Bid(s, 2, 80)
	require.ErrorIs(t, err, codes.ErrBidTooLow)

	_, err = e.PassAuction(s, 1)
	require.NoError(t, err)
	_, err = e.PassAuction(s, 2)
	require.NoError(t, err)

	// carol alone remains as high bidder: settled at 80
	require.Nil(t, s.Auction)
	require.Equal(t, int32(3), s.Squares[3].Owner)
	require.Equal(t, int64(StartingMoney-80), s.Players[2].Money)
	require.Equal(t, int32(2), s.Current)
}

func TestAuctionNoBidsLeavesUnowned(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob")

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Decline(s, 1)
	require.NoError(t, err)

	_, err = e.PassAuction(s, 1)
	require.NoError(t, err)
	_, err = e.PassAuction(s, 2)
	require.NoError(t, err)

	require.Equal(t, Bank, s.Squares[3].Owner)
	require.Nil(t, s.Auction)
}

func TestAuctionTimerClose(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob", "carol")

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Decline(s, 1)
	require.NoError(t, err)
	_, err = e.Bid(s, 2, 10)
	require.NoError(t, err)

	_, err = e.CloseAuction(s)
	require.NoError(t, err)
	require.Equal(t, int32(2), s.Squares[3].Owner)

	_, err = e.CloseAuction(s)
	require.ErrorIs(t, err, codes.ErrAuctionClosed)
}

func TestBidCappedByCash(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob")
	s.Players[1].Money = 30

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Decline(s, 1)
	require.NoError(t, err)

	_, err = e.Bid(s, 2, 31)
	require.ErrorIs(t, err, codes.ErrInsufficientFunds)
	_, err = e.Bid(s, 2, 30)
	require.NoError(t, err)
}

// A winner drained below the standing bid between bidding and close goes
// through the normal debt flow instead of silently going negative.
func TestAuctionWinnerWhoCannotPayGoesBankrupt(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob", "carol")

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Decline(s, 1)
	require.NoError(t, err)
	_, err = e.Bid(s, 2, 30)
	require.NoError(t, err)

	// rent or a fine drained the winner after the bid was placed
	s.Players[1].Money = 0

	evs, err := e.CloseAuction(s)
	require.NoError(t, err)
	require.True(t, s.Players[1].Bankrupt)
	require.Equal(t, int64(0), s.Players[1].Money)
	require.Equal(t, Bank, s.Squares[3].Owner)
	require.Equal(t, int32(3), s.Current)
	for _, ev := range evs {
		if ev.Type == "money.transfer" && ev.Payload["reason"] == "auction" {
			t.Fatalf("sale should not settle: %v", ev.Payload)
		}
	}
}

// An unaffordable purchase falls through to an auction instead of failing.
func TestBuyWithoutFundsOpensAuction(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}}}, "alice", "bob")
	s.Players[0].Money = 10

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	_, err = e.Buy(s, 1)
	require.NoError(t, err)
	require.Equal(t, PhAuction, s.Phase)
	require.Equal(t, Bank, s.Squares[3].Owner)
}

func TestBuildRules(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	// brown group is squares 1 and 3
	s.Squares[1].Owner = 1
	s.Squares[3].Owner = 1

	_, err := e.Build(s, 1, 1)
	require.NoError(t, err)
	require.Equal(t, int32(1), s.Squares[1].Level)
	require.Equal(t, int64(StartingMoney-50), s.Players[0].Money)

	// level spread must stay within one
	_, err = e.Build(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrGroupImbalance)
	_, err = e.Build(s, 1, 3)
	require.NoError(t, err)

	// incomplete group
	s.Squares[3].Owner = 2
	_, err = e.Build(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrGroupIncomplete)
	s.Squares[3].Owner = 1

	// mortgaged member blocks construction
	s.Squares[3].Mortgaged = true
	_, err = e.Build(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrGroupMortgaged)
	s.Squares[3].Mortgaged = false

	// not the owner's turn
	_, err = e.Build(s, 2, 1)
	require.ErrorIs(t, err, codes.ErrNotYourTurn)
}

func TestBuildToHotelAndSellBalance(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	s.Squares[1].Owner = 1
	s.Squares[3].Owner = 1
	s.Players[0].Money = 10_000

	for lvl := 1; lvl <= MaxLevel; lvl++ {
		_, err := e.Build(s, 1, 1)
		require.NoError(t, err)
		_, err = e.Build(s, 1, 3)
		require.NoError(t, err)
	}
	_, err := e.Build(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrIllegalTarget) // beyond hotel

	// selling must come off a tallest square
	_, err = e.Sell(s, 1, 1)
	require.NoError(t, err)
	_, err = e.Sell(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrGroupImbalance)
	_, err = e.Sell(s, 1, 3)
	require.NoError(t, err)
}

func TestMortgageCycle(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	q := s.Squares[1] // price 60
	q.Owner = 1
	p := s.Players[0]

	_, err := e.Mortgage(s, 1, 1)
	require.NoError(t, err)
	require.True(t, q.Mortgaged)
	require.Equal(t, int64(StartingMoney+30), p.Money)

	_, err = e.Mortgage(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrIllegalTarget)

	_, err = e.Unmortgage(s, 1, 1)
	require.NoError(t, err)
	require.False(t, q.Mortgaged)
	require.Equal(t, int64(StartingMoney+30-33), p.Money) // 10% interest

	// improvements block mortgaging
	s.Squares[3].Owner = 1
	_, err = e.Build(s, 1, 1)
	require.NoError(t, err)
	_, err = e.Mortgage(s, 1, 1)
	require.ErrorIs(t, err, codes.ErrIllegalTarget)
}

// A mortgage by a non-current player is legal: out-of-turn charges (cards)
// may force them to raise cash.
func TestMortgageOutOfTurn(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	s.Squares[1].Owner = 2
	_, err := e.Mortgage(s, 2, 1)
	require.NoError(t, err)
}

func TestBankruptcyToCreditorTransfersEstate(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 3}}}, "alice", "bob")
	alice, bob := s.Players[0], s.Players[1]

	// bob owns Boardwalk with a hotel; alice lands on it broke
	bw := s.Squares[39]
	bw.Owner = 2
	bw.Level = MaxLevel
	alice.Pos = 35
	alice.Money = 100
	s.Squares[1].Owner = 1
	s.Squares[1].Mortgaged = true
	alice.JailCards = 1

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)

	require.True(t, alice.Bankrupt)
	require.Equal(t, int64(0), alice.Money)
	require.Equal(t, int32(2), s.Squares[1].Owner)
	require.True(t, s.Squares[1].Mortgaged) // mortgage state carries over
	require.Equal(t, int32(1), bob.JailCards)

	// two players, one bankrupt: game over
	require.Equal(t, PhGameOver, s.Phase)
	require.Equal(t, int32(2), s.Winner)

	_, err = e.RollDice(s, 2)
	require.ErrorIs(t, err, codes.ErrWrongPhase)
}

func TestBankruptcyToBankRevertsSquares(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 3}}}, "alice", "bob", "carol")
	alice := s.Players[0]

	// income tax at 4 is 200; alice can only ever raise 10
	alice.Pos = 0
	alice.Money = 10
	s.Squares[1].Owner = 1
	s.Squares[1].Mortgaged = true
	s.Squares[3].Owner = 1
	s.Squares[3].Level = 2

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)

	require.True(t, alice.Bankrupt)
	for _, id := range []int32{1, 3} {
		q := s.Squares[id]
		require.Equal(t, Bank, q.Owner)
		require.False(t, q.Mortgaged)
		require.Equal(t, int32(0), q.Level)
	}
	require.Equal(t, PhAwaitRoll, s.Phase) // two players remain
	require.Equal(t, int32(2), s.Current)
}

// Rent beyond cash but within liquidity leaves a transient negative balance;
// the turn cannot end until it is settled.
func TestDebtBlocksEndTurn(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 3}}}, "alice", "bob")
	alice := s.Players[0]

	bw := s.Squares[39]
	bw.Owner = 2
	bw.Level = 1 // rent 200
	alice.Pos = 35
	alice.Money = 100
	s.Squares[24].Owner = 1 // Illinois, mortgage value 120

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.False(t, alice.Bankrupt)
	require.Equal(t, int64(-100), alice.Money)
	require.Equal(t, int32(1), s.Current)

	_, err = e.EndTurn(s, 1)
	require.ErrorIs(t, err, codes.ErrDebtOutstanding)

	_, err = e.Mortgage(s, 1, 24)
	require.NoError(t, err)
	require.Equal(t, int64(20), alice.Money)

	_, err = e.EndTurn(s, 1)
	require.NoError(t, err)
	require.Equal(t, int32(2), s.Current)
}

func TestRentScalesWithRailroadsAndUtilities(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")

	for _, id := range []int32{5, 15, 25} {
		s.Squares[id].Owner = 2
	}
	require.Equal(t, int64(100), e.rentFor(s, s.Squares[5]))
	s.Squares[35].Owner = 2
	require.Equal(t, int64(200), e.rentFor(s, s.Squares[5]))

	s.Dice = [2]int32{3, 4}
	s.Squares[12].Owner = 2
	require.Equal(t, int64(28), e.rentFor(s, s.Squares[12]))
	s.Squares[28].Owner = 2
	require.Equal(t, int64(70), e.rentFor(s, s.Squares[12]))
}

func TestGoToJailSquareForfeitsTurn(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{2, 3}}}, "alice", "bob")
	alice := s.Players[0]
	alice.Pos = 25

	_, err := e.RollDice(s, 1)
	require.NoError(t, err)
	require.True(t, alice.InJail)
	require.Equal(t, int32(JailPos), alice.Pos)
	require.Equal(t, int64(StartingMoney), alice.Money) // no bonus, no fine
	require.Equal(t, int32(2), s.Current)
}

func TestEventSeqMonotonic(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{Rolls: [][2]int32{{1, 2}, {2, 2}}}, "alice", "bob")

	var last int64
	collect := func(evs []Event) {
		for _, ev := range evs {
			require.Greater(t, ev.Seq, last)
			last = ev.Seq
		}
	}

	evs, err := e.RollDice(s, 1)
	require.NoError(t, err)
	collect(evs)
	evs, err = e.Buy(s, 1)
	require.NoError(t, err)
	collect(evs)
	evs, err = e.RollDice(s, 2)
	require.NoError(t, err)
	collect(evs)
	require.Equal(t, s.Seq, last)
}

func TestChat(t *testing.T) {
	e, s := newTestGame(t, &ScriptRoller{}, "alice", "bob")
	evs, err := e.Chat(s, 2, "hi")
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Len(t, s.Chat, 1)
	require.Equal(t, "bob", s.Chat[0].Name)

	_, err = e.Chat(s, 9, "nope")
	require.ErrorIs(t, err, codes.ErrPlayerNotFound)
}

// Money conservation: the total held by players only changes by what flows
// to or from the bank, plus forgiven debt at bankruptcy. Soaked over full
// random games.
func TestMoneyConservation(t *testing.T) {
	for round := 0; round < 20; round++ {
		r := NewCryptoRoller()
		e := NewEngine(r)
		s := NewState("g-soak", r)
		for _, n := range []string{"a", "b", "c"} {
			_, _, err := e.AddPlayer(s, n, "", false)
			require.NoError(t, err)
		}

		total := func() int64 {
			var sum int64
			for _, p := range s.Players {
				sum += p.Money
			}
			return sum
		}

		var bankFlow int64
		step := func(evs []Event, err error) {
			if err != nil {
				return
			}
			for _, ev := range evs {
				switch ev.Type {
				case "money.transfer":
					from := ev.Payload["from"].(int32)
					to := ev.Payload["to"].(int32)
					amount := ev.Payload["amount"].(int64)
					if from == Bank {
						bankFlow += amount
					}
					if to == Bank {
						bankFlow -= amount
					}
				case "player.bankrupt":
					if cash := ev.Payload["cashBefore"].(int64); cash < 0 {
						bankFlow -= cash
					}
				}
			}
		}

		start := total()
		for i := 0; i < 500 && s.Phase != PhGameOver; i++ {
			cur := s.Current
			switch s.Phase {
			case PhAwaitRoll:
				if !s.Rolled {
					step(e.RollDice(s, cur))
				} else if s.PlayerByID(cur).Money >= 0 {
					step(e.EndTurn(s, cur))
				} else {
					// liquidate until solvent
					settled := false
					for _, q := range s.Squares {
						if q.Owner != cur {
							continue
						}
						if q.Level > 0 {
							step(e.Sell(s, cur, q.ID))
							settled = true
							break
						}
						if !q.Mortgaged {
							step(e.Mortgage(s, cur, q.ID))
							settled = true
							break
						}
					}
					require.True(t, settled, "player stuck in debt with no assets")
				}
			case PhAwaitAction:
				step(e.Buy(s, cur))
			case PhAuction:
				for _, p := range s.Alive() {
					if s.Auction == nil {
						break
					}
					step(e.PassAuction(s, p.ID))
				}
			default:
				t.Fatalf("unexpected phase %v", s.Phase)
			}
			require.Equal(t, start+bankFlow, total(), "conservation broken at step %d", i)
		}
	}
}
