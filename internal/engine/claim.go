package engine

import (
	"math/rand"
	"time"
)

// ClaimOutcome is the tagged result of a withdrawal request. Gate conditions
// are ordinary values, never errors; front ends render them directly.
type ClaimOutcome string

const (
	OutcomeOk                ClaimOutcome = "ok"
	OutcomeNoDestination     ClaimOutcome = "no_destination"
	OutcomeCapReached        ClaimOutcome = "cap_reached"
	OutcomeNeedsVerification ClaimOutcome = "needs_verification"
	OutcomeInsufficientStake ClaimOutcome = "insufficient_stake"
	OutcomeNoChallenge       ClaimOutcome = "no_challenge"
)

// ClaimStatus tracks an accepted claim through external settlement.
// Bookkeeping happens before submission, so callers must treat a claim as
// pending until the ledger confirms.
type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimConfirmed ClaimStatus = "confirmed"
	ClaimFailed    ClaimStatus = "failed"
)

// ClaimResult is returned from RequestClaim and AnswerChallenge.
type ClaimResult struct {
	Outcome   ClaimOutcome `json:"outcome"`
	ClaimID   string       `json:"claim_id,omitempty"`
	Amount    float64      `json:"amount,omitempty"`
	Challenge string       `json:"challenge,omitempty"`
}

// ClaimRecord is the engine-side view of one accepted claim.
type ClaimRecord struct {
	ID          string      `json:"id"`
	Amount      float64     `json:"amount"`
	Destination string      `json:"destination"`
	Status      ClaimStatus `json:"status"`
	TxID        string      `json:"tx_id,omitempty"`
	RequestedAt time.Time   `json:"requested_at"`
}

// Challenge is one step-up verification question. The set is fixed and
// trivially human-answerable; this is a UX speed bump, not an auth factor.
type Challenge struct {
	Question string
	Answer   string
}

var challengeSet = []Challenge{
	{Question: "Type the word 'listen' backwards", Answer: "netsil"},
	{Question: "What is three plus four?", Answer: "7"},
	{Question: "Type the second word of 'play that song'", Answer: "that"},
	{Question: "What is ten minus six?", Answer: "4"},
	{Question: "Type the word 'music' in capitals", Answer: "MUSIC"},
	{Question: "How many letters are in 'track'?", Answer: "5"},
}

func pickChallenge() Challenge {
	return challengeSet[rand.Intn(len(challengeSet))]
}
