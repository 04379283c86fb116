// Package accounts manages clients and employees.
//
// Both identity spaces share one email namespace. Clients carry the
// monetary balance that orders debit and TopUp credits; a blocked client
// may not start new actions.
package accounts
