package utils

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// SixIDSubtype is the BSON binary subtype SixIDs are stored under.
const SixIDSubtype byte = 0x80

// SixIDHookFunc lets tests force the next generated id.
type SixIDHookFunc func() (id SixID, override bool)

// NewSixIDHook is consulted by NewSixID when set.
var NewSixIDHook SixIDHookFunc

// SixID is a 6-byte random identifier. It is rendered as 10 Crockford Base32
// characters and stored in Mongo as binary with subtype 0x80.
type SixID [6]byte

var (
	ErrSixIDLength  = errors.New("invalid SixID: expected 10 Crockford Base32 characters")
	ErrSixIDChar    = errors.New("invalid SixID: unexpected character")
	ErrSixIDBSONRaw = errors.New("invalid SixID: expected 6-byte binary with subtype 0x80")
)

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordDecode [256]int8

func init() {
	for i := range crockfordDecode {
		crockfordDecode[i] = -1
	}
	for i := 0; i < len(crockfordAlphabet); i++ {
		c := crockfordAlphabet[i]
		crockfordDecode[c] = int8(i)
		if c >= 'A' && c <= 'Z' {
			crockfordDecode[c+('a'-'A')] = int8(i)
		}
	}
	// Crockford aliases for characters people mistype.
	for _, c := range []byte{'O', 'o'} {
		crockfordDecode[c] = 0
	}
	for _, c := range []byte{'I', 'i', 'L', 'l'} {
		crockfordDecode[c] = 1
	}
}

// NewSixID returns a random SixID.
func NewSixID() SixID {
	if NewSixIDHook != nil {
		if id, ok := NewSixIDHook(); ok {
			return id
		}
	}
	var id SixID
	if _, err := rand.Read(id[:]); err != nil {
		panic(fmt.Sprintf("sixid: crypto/rand failed: %v", err))
	}
	return id
}

// IsZero reports whether the id is unset. The BSON encoder honours it for omitempty.
func (u SixID) IsZero() bool {
	return u == SixID{}
}

// String encodes the id least-significant bits first, 5 bits per character.
func (u SixID) String() string {
	out := make([]byte, 0, 10)
	var acc uint64
	var n uint
	for _, b := range u {
		acc |= uint64(b) << n
		n += 8
		for n >= 5 {
			out = append(out, crockfordAlphabet[acc&0x1f])
			acc >>= 5
			n -= 5
		}
	}
	if n > 0 {
		out = append(out, crockfordAlphabet[acc&0x1f])
	}
	return string(out)
}

// ParseSixID decodes the String form. Hyphens and spaces are ignored and an
// empty string yields the zero id.
func ParseSixID(s string) (SixID, error) {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if s == "" {
		return SixID{}, nil
	}
	if len(s) != 10 {
		return SixID{}, ErrSixIDLength
	}

	var id SixID
	var acc uint64
	var n uint
	i := 0
	for j := 0; j < len(s); j++ {
		v := crockfordDecode[s[j]]
		if v < 0 {
			return SixID{}, ErrSixIDChar
		}
		acc |= uint64(v) << n
		n += 5
		for n >= 8 && i < len(id) {
			id[i] = byte(acc)
			i++
			acc >>= 8
			n -= 8
		}
	}
	return id, nil
}

// MustParseSixID is ParseSixID for literals in tests and fixtures.
func MustParseSixID(s string) SixID {
	id, err := ParseSixID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (u SixID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *SixID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := ParseSixID(s)
	if err != nil {
		return err
	}
	*u = id
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler.
func (u SixID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bsontype.Binary, bsoncore.AppendBinary(nil, SixIDSubtype, u[:]), nil
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler. Null decodes to the zero id.
func (u *SixID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*u = SixID{}
		return nil
	}
	if t != bsontype.Binary {
		return ErrSixIDBSONRaw
	}
	subtype, bin, _, ok := bsoncore.ReadBinary(data)
	if !ok || subtype != SixIDSubtype || len(bin) != len(u) {
		return ErrSixIDBSONRaw
	}
	copy(u[:], bin)
	return nil
}

// Less orders ids bytewise.
func (u SixID) Less(o SixID) bool {
	for i := range u {
		if u[i] != o[i] {
			return u[i] < o[i]
		}
	}
	return false
}
