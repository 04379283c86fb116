// Package ordering builds orders from cart snapshots and records their
// confirmation by employees.
//
// CreateOrder debits the client and persists the order with its items in a
// single transaction; book names are re-resolved against the catalog in one
// batched lookup. ConfirmOrder is first-write-wins.
package ordering
