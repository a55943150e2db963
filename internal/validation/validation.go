// Package validation checks request fields before they reach the engine.
// Every failure is an *errors.APIError with code VALIDATION_ERROR and the
// offending field set.
package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zfogg/hypechain/backend/internal/errors"
	"github.com/zfogg/hypechain/backend/internal/models"
)

const (
	MaxTitleLength  = 200
	MaxURLLength    = 2048
	MaxWalletLength = 128
	walletHexLength = 42
)

var (
	walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	hexBody       = regexp.MustCompile(`^[a-fA-F0-9]*$`)
)

// Wallet trims and checks a wallet address. Loose mode only requires a
// non-empty value; strict mode requires the EVM form 0x + 40 hex characters.
func Wallet(field, wallet string, strict bool) (string, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return "", errors.ValidationError(field, "Wallet address is required")
	}
	if len(wallet) > MaxWalletLength {
		return "", errors.ValidationError(field, "Wallet address is too long")
	}
	if !strict || walletPattern.MatchString(wallet) {
		return wallet, nil
	}

	switch {
	case !strings.HasPrefix(wallet, "0x"):
		return "", errors.ValidationError(field, "Wallet address must start with 0x")
	case len(wallet) != walletHexLength:
		return "", errors.ValidationError(field, "Wallet address must be 42 characters (0x + 40 hex characters)")
	case !hexBody.MatchString(wallet[2:]):
		return "", errors.ValidationError(field, "Wallet address contains invalid characters (only 0-9, a-f, A-F allowed)")
	}
	return "", errors.ValidationError(field, "Invalid wallet address")
}

// OptionalWallet is Wallet for fields that may be omitted.
func OptionalWallet(field, wallet string, strict bool) (*string, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, nil
	}
	w, err := Wallet(field, wallet, strict)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Required trims value and rejects it when empty or longer than maxLen runes.
func Required(field, value string, maxLen int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.ValidationError(field, field+" is required")
	}
	if maxLen > 0 && utf8.RuneCountInString(value) > maxLen {
		return "", errors.ValidationError(field, field+" is too long")
	}
	return value, nil
}

// ID checks an opaque identifier taken from a path or body.
func ID(field, id string) (string, error) {
	return Required(field, id, 64)
}

// MediaURL requires an absolute http(s) URL.
func MediaURL(field, raw string) (string, error) {
	raw, err := Required(field, raw, MaxURLLength)
	if err != nil {
		return "", err
	}
	u, perr := url.Parse(raw)
	if perr != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", errors.ValidationError(field, field+" must be an absolute http(s) URL")
	}
	return raw, nil
}

// EngagementType lower-cases t and checks it is view, click or share.
func EngagementType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "", errors.ValidationError("engagement_type", "engagement_type is required")
	}
	if !models.IsValidEngagementType(t) {
		return "", errors.ValidationError("engagement_type", "Invalid engagement_type. Must be: view, click, or share")
	}
	return t, nil
}
