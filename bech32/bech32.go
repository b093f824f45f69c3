// Package bech32 implements the BIP-0173 bech32 checksum format, with
// the BIP-350 ("bech32m") checksum constant available for encodings
// that need it. Cardano's CIP-0129 governance-action-id encoding (the
// only bech32 surface this module's core needs, per §6.2) uses the
// original BIP-0173 constant.
package bech32

import (
	"strings"

	"github.com/heliotx/cardano-txcore/txerr"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// ChecksumConst selects which BIP variant's checksum constant to use.
type ChecksumConst uint32

const (
	Bech32  ChecksumConst = 1
	Bech32M ChecksumConst = 0x2bc830a3
)

var charsetIndex = func() map[byte]int {
	m := make(map[byte]int, len(charset))
	for i := 0; i < len(charset); i++ {
		m[charset[i]] = i
	}
	return m
}()

func polymod(values []int) int {
	gen := [5]int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := 1
	for _, v := range values {
		b := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ v
		for i := 0; i < 5; i++ {
			if (b>>i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []int {
	out := make([]int, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		out = append(out, int(hrp[i])>>5)
	}
	out = append(out, 0)
	for i := 0; i < len(hrp); i++ {
		out = append(out, int(hrp[i])&31)
	}
	return out
}

func createChecksum(hrp string, data []int, spec ChecksumConst) []int {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ int(spec)
	out := make([]int, 6)
	for i := 0; i < 6; i++ {
		out[i] = (mod >> uint(5*(5-i))) & 31
	}
	return out
}

func verifyChecksum(hrp string, data []int, spec ChecksumConst) bool {
	values := append(hrpExpand(hrp), data...)
	return polymod(values) == int(spec)
}

// ConvertBits regroups a sequence of fromBits-wide integers into
// toBits-wide integers, padding with zero bits when pad is true. It is
// the 8<->5 bit-group conversion used on both encode and decode.
func ConvertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := 0
	bits := uint(0)
	var out []byte
	maxv := (1 << toBits) - 1
	maxAcc := (1 << (fromBits + toBits - 1)) - 1

	for _, b := range data {
		value := int(b)
		if value < 0 || value>>fromBits != 0 {
			return nil, txerr.New(txerr.KindInvalidArgument, "input value %d out of range for %d bits", value, fromBits)
		}
		acc = ((acc << fromBits) | value) & maxAcc
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, txerr.New(txerr.KindDecoding, "invalid zero padding in bit conversion")
	}

	return out, nil
}

// Encode produces the bech32 string for hrp and an 8-bit payload,
// converting it to 5-bit groups and appending the checksum.
func Encode(hrp string, payload []byte, spec ChecksumConst) (string, error) {
	if hrp == "" {
		return "", txerr.New(txerr.KindInvalidArgument, "empty human-readable part")
	}
	five, err := ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := make([]int, len(five))
	for i, b := range five {
		data[i] = int(b)
	}
	checksum := createChecksum(hrp, data, spec)
	data = append(data, checksum...)

	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, d := range data {
		sb.WriteByte(charset[d])
	}
	return sb.String(), nil
}

// Decode parses a bech32 string, returning its human-readable part and
// 8-bit payload. Mixed-case input is rejected per BIP-0173.
func Decode(s string, spec ChecksumConst) (hrp string, payload []byte, err error) {
	hasLower := strings.ToLower(s) != s
	hasUpper := strings.ToUpper(s) != s
	if hasLower && hasUpper {
		return "", nil, txerr.New(txerr.KindDecoding, "mixed-case bech32 string")
	}
	s = strings.ToLower(s)

	sep := strings.LastIndexByte(s, '1')
	if sep < 1 || sep+7 > len(s) {
		return "", nil, txerr.New(txerr.KindDecoding, "malformed bech32 separator")
	}
	hrp = s[:sep]
	dataPart := s[sep+1:]

	data := make([]int, len(dataPart))
	for i := 0; i < len(dataPart); i++ {
		idx, ok := charsetIndex[dataPart[i]]
		if !ok {
			return "", nil, txerr.New(txerr.KindDecoding, "invalid bech32 character %q", dataPart[i])
		}
		data[i] = idx
	}

	if !verifyChecksum(hrp, data, spec) {
		return "", nil, txerr.New(txerr.KindDecoding, "invalid bech32 checksum")
	}

	body := data[:len(data)-6]
	bs := make([]byte, len(body))
	for i, v := range body {
		bs[i] = byte(v)
	}
	payload, err = ConvertBits(bs, 5, 8, false)
	if err != nil {
		return "", nil, err
	}
	return hrp, payload, nil
}
