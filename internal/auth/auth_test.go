package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNormalizeWalletAddress_Checksums(t *testing.T) {
	tests := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range tests {
		t.Run(want, func(t *testing.T) {
			got, err := NormalizeWalletAddress(strings.ToLower(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			got, err = NormalizeWalletAddress("0x" + strings.ToUpper(want[2:]))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeWalletAddress_Stacks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"mainnet", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"},
		{"testnet", "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG", "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"},
		{"multisig", "SM2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKQVX8X0G", "SM2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKQVX8X0G"},
		{"leading zero bytes", "SP000000000000000000002Q6VF78", "SP000000000000000000002Q6VF78"},
		{"lower case and padding", "  sp2j6zy48gv1ez5v2v5rb9mp66sw86pykknrv9ej7\n", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeWalletAddress(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, ValidWalletAddress(tt.input))
		})
	}
}

func TestNormalizeWalletAddress_Rejects(t *testing.T) {
	for _, addr := range []string{
		"",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA",
		"0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ8", // checksum
		"SX2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", // version
		"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJI", // alphabet
		"SP2J6ZY48GV1EZ5V",
		"SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7SP2J6",
	} {
		_, err := NormalizeWalletAddress(addr)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput), "address %q", addr)
	}
}

func TestSameWallet(t *testing.T) {
	assert.True(t, SameWallet("0xABC", "0xabc"))
	assert.False(t, SameWallet("0xABC", "0xabd"))
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)

	player := domain.NewPlayer("player-1", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", time.Now())
	token, expiresAt, err := svc.GenerateAccessToken(player)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "player-1", claims.UserID)
	assert.Equal(t, player.WalletAddress, claims.WalletAddress)
	assert.Equal(t, "player-1", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestTokenService_RejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := NewTokenService(testKeyHex, -time.Minute)
	require.NoError(t, err)
	player := domain.NewPlayer("player-1", "0xabc", time.Now())

	token, _, err := expired.GenerateAccessToken(player)
	require.NoError(t, err)
	_, err = expired.VerifyAccessToken(token)
	assert.Error(t, err)

	other, err := NewTokenService(strings.Repeat("f", 64), time.Hour)
	require.NoError(t, err)
	token, _, err = other.GenerateAccessToken(player)
	require.NoError(t, err)

	svc, err := NewTokenService(testKeyHex, time.Hour)
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(token)
	assert.Error(t, err)

	_, err = svc.VerifyAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestNewTokenService_RejectsBadKeys(t *testing.T) {
	_, err := NewTokenService("abc", time.Hour)
	assert.Error(t, err)

	_, err = NewTokenService(strings.Repeat("z", 64), time.Hour)
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.key")

	first, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Len(t, first, keyHexSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))
	_, err = LoadOrGenerateKey(path)
	assert.Error(t, err)
}
