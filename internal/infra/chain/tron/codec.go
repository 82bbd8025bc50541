package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/mr-tron/base58"
)

const (
	addressPrefix = 0x41
	addressLen    = 21
)

// AddressEncode converts a 41-prefixed hex address to base58check. Inputs that
// are already base58 are returned unchanged.
func (c *Client) AddressEncode(hexAddr string) (string, bool) {
	return EncodeAddress(hexAddr)
}

// MemoDecode decodes the hex raw_data.data field into text.
func (c *Client) MemoDecode(data string) (string, bool) {
	return DecodeMemo(data)
}

func EncodeAddress(hexAddr string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimPrefix(hexAddr, "0x"), "0X")
	if s == "" {
		return "", false
	}
	if len(s) == 34 && s[0] == 'T' {
		if _, err := base58.Decode(s); err == nil {
			return s, true
		}
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", false
	}
	switch {
	case len(raw) == addressLen-1:
		// 20-byte EVM style address from ABI data
		raw = append([]byte{addressPrefix}, raw...)
	case len(raw) != addressLen || raw[0] != addressPrefix:
		return "", false
	}

	first := sha256.Sum256(raw)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(raw, second[:4]...)), true
}

func DecodeMemo(data string) (string, bool) {
	if data == "" {
		return "", false
	}
	raw, err := hex.DecodeString(data)
	if err != nil || !utf8.Valid(raw) {
		return "", false
	}
	memo := strings.TrimSpace(strings.TrimRight(string(raw), "\x00"))
	if memo == "" {
		return "", false
	}
	return memo, true
}
