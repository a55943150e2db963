package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/hypechain/backend/internal/errors"
)

func TestWalletStrict(t *testing.T) {
	valid := "0x" + strings.Repeat("aB", 20)

	tests := []struct {
		name    string
		wallet  string
		message string
	}{
		{"empty", "   ", "Wallet address is required"},
		{"no prefix", strings.Repeat("a", 42), "Wallet address must start with 0x"},
		{"short", "0xabc", "Wallet address must be 42 characters (0x + 40 hex characters)"},
		{"bad chars", "0x" + strings.Repeat("g", 40), "Wallet address contains invalid characters (only 0-9, a-f, A-F allowed)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Wallet("wallet_address", tt.wallet, true)
			apiErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrValidation, apiErr.Code)
			assert.Equal(t, "wallet_address", apiErr.Field)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}

	got, err := Wallet("wallet_address", "  "+valid+" ", true)
	require.NoError(t, err)
	assert.Equal(t, valid, got)
}

func TestWalletLoose(t *testing.T) {
	got, err := Wallet("creator_wallet", " alice.sol ", false)
	require.NoError(t, err)
	assert.Equal(t, "alice.sol", got)

	_, err = Wallet("creator_wallet", "", false)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	_, err = Wallet("creator_wallet", strings.Repeat("x", MaxWalletLength+1), false)
	assert.Error(t, err)
}

func TestOptionalWallet(t *testing.T) {
	w, err := OptionalWallet("wallet_address", "", true)
	require.NoError(t, err)
	assert.Nil(t, w)

	w, err = OptionalWallet("wallet_address", "bob", false)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "bob", *w)

	_, err = OptionalWallet("wallet_address", "bob", true)
	assert.Error(t, err)
}

func TestRequired(t *testing.T) {
	got, err := Required("title", "  Hello ", MaxTitleLength)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)

	_, err = Required("title", "", MaxTitleLength)
	apiErr, _ := errors.As(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, "title is required", apiErr.Message)

	_, err = Required("title", strings.Repeat("é", MaxTitleLength+1), MaxTitleLength)
	assert.Error(t, err)
	_, err = Required("title", strings.Repeat("é", MaxTitleLength), MaxTitleLength)
	assert.NoError(t, err)
}

func TestMediaURL(t *testing.T) {
	_, err := MediaURL("media_url", "https://cdn.example.com/a.png")
	assert.NoError(t, err)

	for _, bad := range []string{"", "not a url", "ftp://x/y", "/relative/path"} {
		_, err := MediaURL("media_url", bad)
		assert.Error(t, err, bad)
	}
}

func TestEngagementType(t *testing.T) {
	got, err := EngagementType(" CLICK ")
	require.NoError(t, err)
	assert.Equal(t, "click", got)

	_, err = EngagementType("like")
	apiErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "engagement_type", apiErr.Field)

	_, err = EngagementType("")
	assert.Error(t, err)
}
