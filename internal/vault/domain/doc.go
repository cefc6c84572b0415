// Package domain defines the vault data model: named vaults, their versioned
// keys, and the token records that map a surrogate token to sealed sensitive data.
package domain
