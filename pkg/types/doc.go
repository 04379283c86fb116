// Package types provides shared type definitions for the bookstore.
//
// This package defines the domain types used across the storage, catalog,
// cart, ordering and accounts packages, plus the error taxonomy every layer
// reports with.
//
// # Core Types
//
// Book is a catalog record identified by its unique name:
//
//	book := types.Book{
//	    Name:     "Java",
//	    Author:   "J. Gosling",
//	    Genre:    "Programming",
//	    Price:    decimal.RequireFromString("30.00"),
//	    AgeGroup: types.AgeGroupAdult,
//	    Language: types.LanguageEnglish,
//	}
//
// Client and Employee embed the shared Account value. Principal is the
// role-tagged view used at the account-lookup boundary.
//
// Order is the aggregate root of a placed order and owns its BookItem lines.
// CartLine is one entry of a cart snapshot handed to the order builder.
//
// # Money
//
// Every price, balance and total is a decimal.Decimal so sums are exact.
//
// # Errors
//
// Failures are reported with sentinel errors that callers test with errors.Is:
//
//	if errors.Is(err, types.ErrInsufficientFunds) {
//	    var funds *types.InsufficientFundsError
//	    errors.As(err, &funds)
//	    fmt.Println(funds.Balance, funds.Required)
//	}
package types
