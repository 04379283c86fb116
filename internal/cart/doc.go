// Package cart holds per-session shopping carts.
//
// A Cart maps book names to quantities and to the book snapshot captured on
// first add. Stores keep carts in process (MemoryStore) or in Redis
// (RedisStore); both hand out private copies, so one session can never
// observe another's cart. The Service layers catalog lookups on top.
package cart
