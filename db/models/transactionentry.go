package models

import (
	"time"
)

const (
	EntryTypePurchase = "purchase"
	EntryTypeFee      = "fee"
)

// TransactionEntry : Transaction Entries Model
//
// Double-entry bookkeeping for sale settlements. A purchase inserts one
// entry crediting the seller's current account with the listed price and
// one crediting the platform's fees account with the fee, both debiting
// the buyer's current account, in the same database transaction that
// flips the item's sold flag.
type TransactionEntry struct {
	ID              int64    `bun:",pk,autoincrement"`
	UserID          int64    `bun:",notnull"`
	User            *User    `bun:"rel:belongs-to,join:user_id=id"`
	ItemID          int64    `bun:",notnull"`
	Item            *Item    `bun:"rel:belongs-to,join:item_id=id"`
	CreditAccountID int64    `bun:",notnull"`
	CreditAccount   *Account `bun:"rel:belongs-to,join:credit_account_id=id"`
	DebitAccountID  int64    `bun:",notnull"`
	DebitAccount    *Account `bun:"rel:belongs-to,join:debit_account_id=id"`
	Amount          int64    `bun:",notnull"`
	EntryType       string
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
