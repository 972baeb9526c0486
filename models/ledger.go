package models

import "time"

type EntryKind string

const (
	EntryEarn    EntryKind = "EARN"
	EntryReserve EntryKind = "RESERVE"
	EntryCommit  EntryKind = "COMMIT"
	EntryRelease EntryKind = "RELEASE"
)

// LedgerEntry is one immutable XP movement. Amounts are signed:
// EARN and RELEASE are positive, RESERVE and COMMIT negative.
type LedgerEntry struct {
	ID             string    `json:"id" gorm:"primaryKey;size:26"`
	WalletID       string    `json:"wallet_id" gorm:"size:26;not null;index:idx_ledger_entries_wallet_created,priority:1"`
	ChildID        string    `json:"child_id" gorm:"size:26;not null"`
	Amount         int64     `json:"amount" gorm:"not null"`
	Kind           EntryKind `json:"kind" gorm:"size:16;not null"`
	Ref            *string   `json:"ref,omitempty" gorm:"size:26"`
	IdempotencyKey *string   `json:"-" gorm:"size:64"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_ledger_entries_wallet_created,priority:2"`
}

// Magnitude returns the absolute amount of the movement.
func (e LedgerEntry) Magnitude() int64 {
	if e.Amount < 0 {
		return -e.Amount
	}
	return e.Amount
}

// Balance is derived from ledger entries, never stored.
type Balance struct {
	Earned    int64 `json:"earned"`
	Committed int64 `json:"committed"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// KindTotals are the per-kind sums of entry magnitudes for one wallet.
type KindTotals map[EntryKind]int64

// Fold computes the balance: reserved = RESERVE - RELEASE - COMMIT,
// available = earned - committed - reserved.
func (t KindTotals) Fold() Balance {
	b := Balance{
		Earned:    t[EntryEarn],
		Committed: t[EntryCommit],
		Reserved:  t[EntryReserve] - t[EntryRelease] - t[EntryCommit],
	}
	b.Available = b.Earned - b.Committed - b.Reserved
	return b
}
