// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"bytes"
	"encoding/binary"
)

// EntryBody is the tagged view over an entry's payload: an opaque Struct
// blob, a TokenStream, or a Parameters block. Parameters entries are not
// seen in the wild anymore but must keep loading.
type EntryBody struct {
	contextType ContextType
	raw         []byte
	tokens      *TokenStream
}

// newEntryBody classifies a payload by the entry header fields that govern
// its shape.
func newEntryBody(unitSize uint8, entryID uint16, contextType ContextType, payload []byte) (EntryBody, error) {
	switch contextType {
	case ContextTypeStruct:
		if unitSize != 0 {
			return EntryBody{}, fsErr(InconsistentHeader, "ENTRY_HEADER::unit_size")
		}
		return EntryBody{contextType: contextType, raw: payload}, nil
	case ContextTypeTokens:
		stream, err := newTokenStream(unitSize, entryID, payload)
		if err != nil {
			return EntryBody{}, err
		}
		return EntryBody{contextType: contextType, tokens: stream}, nil
	case ContextTypeParameters:
		return EntryBody{contextType: contextType, raw: payload}, nil
	}
	return EntryBody{}, fsErr(InconsistentHeader, "ENTRY_HEADER::context_type")
}

// ContextType is the body variant tag.
func (b EntryBody) ContextType() ContextType {
	return b.contextType
}

// StructBody returns the opaque payload of a Struct entry.
func (b EntryBody) StructBody() ([]byte, error) {
	if b.contextType != ContextTypeStruct {
		return nil, ErrEntryTypeMismatch
	}
	return b.raw, nil
}

// Parameters returns the payload of a Parameters entry.
func (b EntryBody) Parameters() ([]byte, error) {
	if b.contextType != ContextTypeParameters {
		return nil, ErrEntryTypeMismatch
	}
	return b.raw, nil
}

// TokenStream returns the token view of a Tokens entry.
func (b EntryBody) TokenStream() (*TokenStream, error) {
	if b.contextType != ContextTypeTokens {
		return nil, ErrEntryTypeMismatch
	}
	return b.tokens, nil
}

func (b EntryBody) validate() error {
	if b.contextType == ContextTypeTokens {
		return b.tokens.validate()
	}
	return nil
}

// Entry is a read view of one entry: its decoded header and classified body.
// The body borrows from the blob buffer and is invalidated by any structural
// mutation.
type Entry struct {
	Header EntryHeader
	Body   EntryBody
}

// TokenKind is the token kind of a Tokens entry.
func (e *Entry) TokenKind() (TokenKind, error) {
	stream, err := e.Body.TokenStream()
	if err != nil {
		return 0, err
	}
	return stream.Kind(), nil
}

// DecodeStruct decodes the payload of a Struct entry into v, a pointer to a
// fixed-size structure, little-endian. External typed-accessor layers build
// on this; the core guarantees unit_size == 0 on Struct entries and payload
// bytes unchanged across unrelated mutations.
func (e *Entry) DecodeStruct(v interface{}) error {
	body, err := e.Body.StructBody()
	if err != nil {
		return err
	}
	size := binary.Size(v)
	if size < 0 || size > len(body) {
		return ErrEntryNotExtractable
	}
	return binary.Read(bytes.NewReader(body[:size]), binary.LittleEndian, v)
}

func (e *Entry) validate() error {
	if !ContextType(e.Header.ContextType).valid() {
		return fsErr(InconsistentHeader, "ENTRY_HEADER::context_type")
	}
	if !ContextFormat(e.Header.ContextFormat).valid() {
		return fsErr(InconsistentHeader, "ENTRY_HEADER::context_format")
	}
	return e.Body.validate()
}
