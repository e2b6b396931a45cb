package evm

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeAddress lowercases a 0x-hex address. All addresses inside the
// bot are canonical lowercase; this is the single place that enforces it.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// HexToUint64 parses a 0x-prefixed hex quantity.
func HexToUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return v, nil
}

// HexToBytes decodes 0x-prefixed hex data. An odd-length payload is an
// error; "0x" decodes to an empty slice.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse hex data: %w", err)
	}
	return b, nil
}

// BytesToHex encodes data as 0x-prefixed hex.
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Uint64ToHex encodes a quantity as 0x-prefixed hex without leading zeros.
func Uint64ToHex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// WeiToGwei converts a wei quantity to gwei.
func WeiToGwei(wei uint64) float64 {
	return float64(wei) / 1e9
}

// WordAddress extracts the address packed into the 32-byte word starting
// at offset within ABI-encoded data (the last 20 bytes of the word).
func WordAddress(data []byte, offset int) (string, bool) {
	if offset < 0 || len(data) < offset+32 {
		return "", false
	}
	return "0x" + hex.EncodeToString(data[offset+12:offset+32]), true
}
