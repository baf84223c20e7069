package model

import (
	"crypto/rand"
	"math/big"
)

// Roller supplies the randomness the engine consumes: dice rolls and deck
// permutations. Injecting it keeps every transition deterministic under test.
type Roller interface {
	Roll() (int32, int32)
	Perm(n int) []int32
}

// CryptoRoller draws from crypto/rand. Dice faces are uniform in [1,6];
// permutations are Fisher-Yates with crypto-strong indices.
type CryptoRoller struct{}

func NewCryptoRoller() *CryptoRoller { return &CryptoRoller{} }

func (r *CryptoRoller) Roll() (int32, int32) {
	return cryptoIntn(6) + 1, cryptoIntn(6) + 1
}

func (r *CryptoRoller) Perm(n int) []int32 {
	perm := make([]int32, n)
	for i := range perm {
		perm[i] = int32(i)
	}
	for i := n - 1; i > 0; i-- {
		j := cryptoIntn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

func cryptoIntn(n int) int32 {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// there is no meaningful fallback for a fairness-sensitive roll.
		panic(err)
	}
	return int32(v.Int64())
}

// ScriptRoller replays a fixed sequence of dice pairs and identity
// permutations. Test helper.
type ScriptRoller struct {
	Rolls [][2]int32
	next  int
}

func (r *ScriptRoller) Roll() (int32, int32) {
	if r.next >= len(r.Rolls) {
		return 1, 2
	}
	p := r.Rolls[r.next]
	r.next++
	return p[0], p[1]
}

func (r *ScriptRoller) Perm(n int) []int32 {
	perm := make([]int32, n)
	for i := range perm {
		perm[i] = int32(i)
	}
	return perm
}
