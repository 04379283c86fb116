// Package catalog is the catalog of record for books.
//
// Service answers name lookups for the cart and the order builder and
// carries the employee-facing administration operations. Importer seeds
// the catalog from a YAML document with bounded concurrency.
package catalog
