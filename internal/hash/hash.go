package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"
	"strconv"
	"strings"

	"trade-alerts/internal/types"
)

// Prefix marks generated alert hashes.
const Prefix = "xlx-a-"

// New returns the components an alert hash is generated from
func New(priceLevel float64, userID, symbol string) types.HashComponents {
	return types.HashComponents{
		PriceLevel: priceLevel,
		UserID:     userID,
		Symbol:     symbol,
	}
}

// GenerateHash derives the alert identifier from its components.
// The same components always give the same hash.
func GenerateHash(c types.HashComponents) types.Hash {
	h := sha256.New()
	writeField(h, canonicalPrice(c.PriceLevel))
	writeField(h, c.UserID)
	writeField(h, c.Symbol)

	return types.Hash(Prefix + hex.EncodeToString(h.Sum(nil)))
}

// writeField length-prefixes s so no bytes can move between fields.
func writeField(w io.Writer, s string) {
	binary.Write(w, binary.BigEndian, uint64(len(s)))
	io.WriteString(w, s)
}

// NewAlert builds an alert with its generated hash.
func NewAlert(priceLevel float64, symbol, userID string) types.Alert {
	return types.NewAlert(GenerateHash(New(priceLevel, userID, symbol)), priceLevel, symbol, userID)
}

// Verify reports whether h has the shape of a generated hash.
func Verify(h types.Hash) bool {
	s := string(h)
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	digest := s[len(Prefix):]
	if len(digest) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(digest)
	return err == nil && strings.ToLower(digest) == digest
}

func canonicalPrice(p float64) string {
	if p == 0 {
		// -0 and 0 are the same level
		return "0"
	}
	if math.IsNaN(p) {
		return "NaN"
	}
	return strconv.FormatFloat(p, 'g', -1, 64)
}
