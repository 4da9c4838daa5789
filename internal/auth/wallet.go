package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/bitcoinworld/arcade-server/internal/errors"
)

const walletHexLength = 40

// Stacks c32check addresses: "S", a version character, then the c32
// encoding of a 20-byte hash160 followed by a 4-byte checksum.
const (
	c32Alphabet       = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	stacksHashLength  = 20
	stacksCheckLength = 4
	stacksMinLength   = 28
	stacksMaxLength   = 41
)

// Mainnet and testnet single-sig and multi-sig versions.
var stacksVersions = map[byte]bool{'P': true, 'M': true, 'T': true, 'N': true}

var errInvalidWallet = errors.InvalidInput("Invalid wallet address")

// NormalizeWalletAddress validates a wallet address and returns its
// canonical form. Stacks addresses (SP…, ST…, SM…, SN…) are checked against
// their c32check checksum and upper-cased. 0x-prefixed EVM addresses are
// returned in EIP-55 checksummed form.
func NormalizeWalletAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	switch {
	case strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X"):
		return normalizeEVMAddress(address)
	case strings.HasPrefix(address, "S") || strings.HasPrefix(address, "s"):
		return normalizeStacksAddress(address)
	default:
		return "", errInvalidWallet
	}
}

// ValidWalletAddress reports whether NormalizeWalletAddress accepts address.
func ValidWalletAddress(address string) bool {
	_, err := NormalizeWalletAddress(address)
	return err == nil
}

func normalizeStacksAddress(address string) (string, error) {
	if len(address) < stacksMinLength || len(address) > stacksMaxLength {
		return "", errInvalidWallet
	}
	upper := strings.ToUpper(address)
	if !stacksVersions[upper[1]] {
		return "", errInvalidWallet
	}

	payload, ok := decodeC32(upper[2:])
	if !ok || len(payload) != stacksHashLength+stacksCheckLength {
		return "", errInvalidWallet
	}

	version := byte(strings.IndexByte(c32Alphabet, upper[1]))
	first := sha256.Sum256(append([]byte{version}, payload[:stacksHashLength]...))
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:stacksCheckLength], payload[stacksHashLength:]) {
		return "", errInvalidWallet
	}
	return upper, nil
}

// decodeC32 reads s as a big-endian base-32 number. Each leading '0'
// stands for one leading zero byte.
func decodeC32(s string) ([]byte, bool) {
	zeros := len(s) - len(strings.TrimLeft(s, "0"))
	n := new(big.Int)
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(c32Alphabet, s[i])
		if digit < 0 {
			return nil, false
		}
		n.Lsh(n, 5).Or(n, big.NewInt(int64(digit)))
	}
	return append(make([]byte, zeros), n.Bytes()...), true
}

func normalizeEVMAddress(address string) (string, error) {
	if len(address) != walletHexLength+2 {
		return "", errInvalidWallet
	}

	lower := strings.ToLower(address[2:])
	if _, err := hex.DecodeString(lower); err != nil {
		return "", errInvalidWallet
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	hash := hasher.Sum(nil)

	out := make([]byte, walletHexLength)
	for i := range walletHexLength {
		c := lower[i]
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// SameWallet compares two addresses ignoring letter case.
func SameWallet(a, b string) bool {
	return strings.EqualFold(a, b)
}
