package models

import "time"

// Child is a supervised profile. XP is never stored here: the balance is derived from the ledger.
type Child struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	Role      string    `json:"role"`
	Lang      string    `json:"lang"`
	Name      string    `json:"name"`
	Code      string    `json:"code" gorm:"size:4;index"` // код для привязки второго родителя
	Gender    string    `json:"gender"`
	Age       int       `json:"age"`
	Birthday  string    `json:"birthday"`
	CreatedAt time.Time `json:"created_at"`
}

// ParentChildLink is the authorization edge: a parent may act on a child only if a link row exists.
type ParentChildLink struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	ParentID  string    `json:"parent_id" gorm:"size:26;not null;uniqueIndex:uq_parent_child_links_pair"`
	ChildID   string    `json:"child_id" gorm:"size:26;not null;uniqueIndex:uq_parent_child_links_pair;index"`
	CreatedAt time.Time `json:"created_at"`
}

// Wallet is the lockable anchor for a child's ledger entries. It carries no balance.
type Wallet struct {
	ID        string    `json:"id" gorm:"primaryKey;size:26"`
	ChildID   string    `json:"child_id" gorm:"size:26;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
