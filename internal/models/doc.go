// Package models defines the persisted records of the ledger.
//
// # Records
//
//   - Group: a named, fixed set of members that share expenses
//   - Expense: one payment inside a group, its adjusted total and its
//     allocation across participants
//
// Members are plain name strings, unique within their group. They have no
// lifecycle of their own and only exist as references inside groups and
// expenses.
//
// Balances and settlements are not records. They are derived from a group's
// expenses on every request by the calculator package.
//
// # Validation
//
// Records are validated as a whole before they are handed to storage. Storage
// never fills in missing fields on read; older data formats are converted once
// on import.
package models
