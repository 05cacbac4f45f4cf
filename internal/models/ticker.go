// Package models defines the request-scoped data types shared across kessan
package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyTicker is returned when an operation is given a blank ticker code.
var ErrEmptyTicker = errors.New("ticker code is empty")

// TickerCode is a listed-security code as entered by the user, e.g. "7203".
type TickerCode string

// NormalizeTicker trims the code and, when it is exactly four characters long,
// appends the trailing "0" used by the securities registry ("7203" -> "72030").
// Any other length is returned unchanged.
func NormalizeTicker(raw string) TickerCode {
	code := strings.TrimSpace(raw)
	if utf8.RuneCountInString(code) == 4 {
		return TickerCode(code + "0")
	}
	return TickerCode(code)
}

// ParseTicker trims raw and rejects an empty code.
func ParseTicker(raw string) (TickerCode, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", ErrEmptyTicker
	}
	return TickerCode(code), nil
}

// Full returns the registry (5-character) form of the code.
func (t TickerCode) Full() TickerCode {
	return NormalizeTicker(string(t))
}

// MarketSymbol returns the market-data symbol: the code plus an exchange suffix (".T").
func (t TickerCode) MarketSymbol(suffix string) string {
	return strings.TrimSpace(string(t)) + suffix
}

func (t TickerCode) String() string {
	return string(t)
}
