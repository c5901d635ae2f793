// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

// Token is one decoded token record. Value is already masked to the width of
// the owning entry's token kind.
type Token struct {
	Key   uint32
	Value uint32
}

// TokenStream edits the payload of a Tokens-typed entry in place. Records
// are strictly ascending by key; the key set is unique.
//
// A stream borrows the entry's payload from the blob buffer and is
// invalidated by any structural mutation of the blob.
type TokenStream struct {
	kind TokenKind
	buf  []byte
}

// newTokenStream validates the token framing of an entry body. The stream
// covers all of payload; during an insert the caller passes the grown
// payload, and insert treats its final record as reserved, uninitialized
// space.
func newTokenStream(unitSize uint8, entryID uint16, payload []byte) (*TokenStream, error) {
	if unitSize != tokenPairSize {
		return nil, fsErr(InconsistentHeader, "ENTRY_HEADER::unit_size")
	}
	kind := TokenKind(entryID)
	if !kind.valid() {
		return nil, fsErr(InconsistentHeader, "ENTRY_HEADER::entry_id")
	}
	if len(payload)%tokenPairSize != 0 {
		return nil, fsErr(InconsistentHeader, "ENTRY_HEADER::entry_size")
	}
	return &TokenStream{kind: kind, buf: payload}, nil
}

// Kind is the token kind of the owning entry.
func (s *TokenStream) Kind() TokenKind {
	return s.kind
}

// Len is the number of token records.
func (s *TokenStream) Len() int {
	return len(s.buf) / tokenPairSize
}

// ForEach calls fn for every record in stored (ascending key) order.
// Iteration stops at the first non-nil error, which is returned.
func (s *TokenStream) ForEach(fn func(t Token) error) error {
	cur := newCursor(s.buf)
	for cur.remaining() > 0 {
		var tp TokenPair
		if !cur.takeHeader(&tp) {
			return fsErr(InconsistentHeader, "TOKEN_ENTRY")
		}
		if err := fn(Token{Key: tp.Key, Value: tp.Value & s.kind.Mask()}); err != nil {
			return err
		}
	}
	return nil
}

// Tokens decodes all records in stored order.
func (s *TokenStream) Tokens() []Token {
	result := make([]Token, 0, s.Len())
	_ = s.ForEach(func(t Token) error {
		result = append(result, t)
		return nil
	})
	return result
}

// Token finds the record with the given key.
func (s *TokenStream) Token(key uint32) (Token, error) {
	off, found := s.seek(key)
	if !found {
		return Token{}, ErrTokenNotFound
	}
	var tp TokenPair
	if err := readAt(s.buf, off, &tp); err != nil {
		return Token{}, err
	}
	return Token{Key: tp.Key, Value: tp.Value & s.kind.Mask()}, nil
}

// seek returns the byte offset of the first record whose key is >= key, and
// whether that record's key equals key. The offset may be len(buf).
func (s *TokenStream) seek(key uint32) (int, bool) {
	off := 0
	for off < len(s.buf) {
		var tp TokenPair
		if readAt(s.buf, off, &tp) != nil {
			break
		}
		if tp.Key >= key {
			return off, tp.Key == key
		}
		off += tokenPairSize
	}
	return off, false
}

// insert writes a new record keeping ascending key order. The final
// tokenPairSize bytes of the stream are the still uninitialized space the
// caller reserved by growing the entry; records at and after the insertion
// point shift into it.
func (s *TokenStream) insert(key, value uint32) error {
	if value&^s.kind.Mask() != 0 {
		return ErrTokenRange
	}
	used := len(s.buf) - tokenPairSize
	if used < 0 {
		return fsErr(InconsistentHeader, "ENTRY_HEADER::entry_size")
	}
	off := 0
	for off < used {
		var tp TokenPair
		if err := readAt(s.buf, off, &tp); err != nil {
			return err
		}
		if tp.Key == key {
			return ErrTokenUniqueKeyViolation
		}
		if tp.Key > key {
			break
		}
		off += tokenPairSize
	}
	copy(s.buf[off+tokenPairSize:used+tokenPairSize], s.buf[off:used])
	return writeAt(s.buf, off, &TokenPair{Key: key, Value: value})
}

// update overwrites the value of an existing record.
func (s *TokenStream) update(key, value uint32) error {
	if value&^s.kind.Mask() != 0 {
		return ErrTokenRange
	}
	off, found := s.seek(key)
	if !found {
		return ErrTokenNotFound
	}
	return writeAt(s.buf, off, &TokenPair{Key: key, Value: value})
}

// delete removes the record with the given key, shifting later records left.
// The caller must afterwards shrink the enclosing entry and group by
// tokenPairSize bytes.
func (s *TokenStream) delete(key uint32) error {
	off, found := s.seek(key)
	if !found {
		return ErrTokenNotFound
	}
	copy(s.buf[off:], s.buf[off+tokenPairSize:])
	return nil
}

// validate walks the stream and checks strict ascending key order.
func (s *TokenStream) validate() error {
	first := true
	var prev uint32
	return s.ForEach(func(t Token) error {
		if !first && t.Key <= prev {
			return ErrTokenOrderingViolation
		}
		first = false
		prev = t.Key
		return nil
	})
}
