// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"errors"
	"strconv"
)

// ErrNotPositiveInt is returned by ParseUint for input that is not a
// positive decimal integer.
var ErrNotPositiveInt = errors.New("not a positive integer")

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseUint parses a positive decimal identifier, as used for user and
// record IDs in query and path parameters. Zero, negative, empty, and
// non-numeric input all return ErrNotPositiveInt.
func ParseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrNotPositiveInt
	}
	return uint(n), nil
}
