package metaplex

import (
	"encoding/binary"
	"errors"
	"fmt"

	"solana-nft-kit/internal/solana"
)

// ErrTruncatedAccount is returned when the account data ends mid-field.
var ErrTruncatedAccount = errors.New("truncated metadata account data")

// byteReader walks the borsh-encoded account data. Strings are u32
// little-endian length prefixed, options are a single tag byte, enums a
// single variant byte.
type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) remaining() int {
	return len(r.b) - r.i
}

func (r *byteReader) u8() (uint8, bool) {
	if r.i+1 > len(r.b) {
		return 0, false
	}
	v := r.b[r.i]
	r.i++
	return v, true
}

func (r *byteReader) u16() (uint16, bool) {
	if r.i+2 > len(r.b) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.b[r.i : r.i+2])
	r.i += 2
	return v, true
}

func (r *byteReader) u32() (uint32, bool) {
	if r.i+4 > len(r.b) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.b[r.i : r.i+4])
	r.i += 4
	return v, true
}

func (r *byteReader) u64() (uint64, bool) {
	if r.i+8 > len(r.b) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.b[r.i : r.i+8])
	r.i += 8
	return v, true
}

func (r *byteReader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.i+n > len(r.b) {
		return nil, false
	}
	v := r.b[r.i : r.i+n]
	r.i += n
	return v, true
}

func (r *byteReader) pubkey() (solana.PublicKey, bool) {
	raw, ok := r.bytes(solana.PublicKeyLength)
	if !ok {
		return solana.PublicKey{}, false
	}
	pk, err := solana.PublicKeyFromBytes(raw)
	if err != nil {
		return solana.PublicKey{}, false
	}
	return pk, true
}

// borsh strings are u32 little-endian length + raw bytes, not NUL terminated.
func (r *byteReader) borshString() (string, bool) {
	n, ok := r.u32()
	if !ok || int(n) > r.remaining() {
		return "", false
	}
	s := string(r.b[r.i : r.i+int(n)])
	r.i += int(n)
	return s, true
}

// option reads the borsh Option tag. Missing bytes read as None so accounts
// written by older program versions, which simply end early, still decode.
func (r *byteReader) option() bool {
	tag, ok := r.u8()
	return ok && tag == 1
}

// DecodeAccount decodes raw metadata account bytes into an Account.
func DecodeAccount(data []byte) (*Account, error) {
	r := &byteReader{b: data}
	acct := &Account{}

	key, ok := r.u8()
	if !ok {
		return nil, fmt.Errorf("%w: key", ErrTruncatedAccount)
	}
	acct.Key = key

	if acct.UpdateAuthority, ok = r.pubkey(); !ok {
		return nil, fmt.Errorf("%w: update authority", ErrTruncatedAccount)
	}
	if acct.Mint, ok = r.pubkey(); !ok {
		return nil, fmt.Errorf("%w: mint", ErrTruncatedAccount)
	}

	if acct.Data.Name, ok = r.borshString(); !ok {
		return nil, fmt.Errorf("%w: name", ErrTruncatedAccount)
	}
	if acct.Data.Symbol, ok = r.borshString(); !ok {
		return nil, fmt.Errorf("%w: symbol", ErrTruncatedAccount)
	}
	if acct.Data.URI, ok = r.borshString(); !ok {
		return nil, fmt.Errorf("%w: uri", ErrTruncatedAccount)
	}
	if acct.Data.SellerFeeBasisPoints, ok = r.u16(); !ok {
		return nil, fmt.Errorf("%w: seller fee basis points", ErrTruncatedAccount)
	}

	if r.option() {
		count, ok := r.u32()
		if !ok {
			return nil, fmt.Errorf("%w: creators length", ErrTruncatedAccount)
		}
		creators := make([]Creator, 0, count)
		for i := uint32(0); i < count; i++ {
			var c Creator
			if c.Address, ok = r.pubkey(); !ok {
				return nil, fmt.Errorf("%w: creator %d address", ErrTruncatedAccount, i)
			}
			verified, ok := r.u8()
			if !ok {
				return nil, fmt.Errorf("%w: creator %d verified", ErrTruncatedAccount, i)
			}
			c.Verified = verified == 1
			if c.Share, ok = r.u8(); !ok {
				return nil, fmt.Errorf("%w: creator %d share", ErrTruncatedAccount, i)
			}
			creators = append(creators, c)
		}
		acct.Data.Creators = &creators
	}

	primary, ok := r.u8()
	if !ok {
		return nil, fmt.Errorf("%w: primary sale happened", ErrTruncatedAccount)
	}
	acct.PrimarySaleHappened = primary == 1

	mutable, ok := r.u8()
	if !ok {
		return nil, fmt.Errorf("%w: is mutable", ErrTruncatedAccount)
	}
	acct.IsMutable = mutable == 1

	if r.option() {
		nonce, ok := r.u8()
		if !ok {
			return nil, fmt.Errorf("%w: edition nonce", ErrTruncatedAccount)
		}
		acct.EditionNonce = &nonce
	}

	if r.option() {
		standard, ok := r.u8()
		if !ok {
			return nil, fmt.Errorf("%w: token standard", ErrTruncatedAccount)
		}
		acct.TokenStandard = &standard
	}

	if r.option() {
		var col Collection
		verified, ok := r.u8()
		if !ok {
			return nil, fmt.Errorf("%w: collection verified", ErrTruncatedAccount)
		}
		col.Verified = verified == 1
		if col.Key, ok = r.pubkey(); !ok {
			return nil, fmt.Errorf("%w: collection key", ErrTruncatedAccount)
		}
		acct.Collection = &col
	}

	if r.option() {
		var uses Uses
		if uses.UseMethod, ok = r.u8(); !ok {
			return nil, fmt.Errorf("%w: use method", ErrTruncatedAccount)
		}
		if uses.Remaining, ok = r.u64(); !ok {
			return nil, fmt.Errorf("%w: uses remaining", ErrTruncatedAccount)
		}
		if uses.Total, ok = r.u64(); !ok {
			return nil, fmt.Errorf("%w: uses total", ErrTruncatedAccount)
		}
		acct.Uses = &uses
	}

	if r.option() {
		variant, ok := r.u8()
		if !ok {
			return nil, fmt.Errorf("%w: collection details variant", ErrTruncatedAccount)
		}
		if variant != 0 {
			return nil, fmt.Errorf("unknown collection details variant %d", variant)
		}
		size, ok := r.u64()
		if !ok {
			return nil, fmt.Errorf("%w: collection details size", ErrTruncatedAccount)
		}
		acct.CollectionDetails = &CollectionDetails{Kind: "V1", Size: size}
	}

	return acct, nil
}
