// Package postgres resolves account display names from the accounts
// database owned by the main web application. The gateway only reads.
package postgres
