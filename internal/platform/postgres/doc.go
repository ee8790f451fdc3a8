// Package postgres implements the store interfaces against a
// PostgreSQL database. Every store accepts a DBTX so the same code
// runs against a plain connection or inside a transaction, and maps
// PostgreSQL error codes to the store sentinel errors.
package postgres
