// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
)

// The JSON document mirrors the blob structure. Struct and Parameters
// payloads are carried as hex; Tokens entries carry their decoded records.
// checksum_byte and the header reserved fields are not part of the document;
// they are restamped on import.

type tokenJSON struct {
	Key   uint32
	Value uint32
}

type entryJSON struct {
	EntryID           uint16
	InstanceID        uint16
	BoardInstanceMask uint16
	ContextType       uint8
	PriorityMask      uint8
	Payload           string      `json:",omitempty"`
	Tokens            []tokenJSON `json:",omitempty"`
}

type groupJSON struct {
	Signature string
	GroupID   uint16
	Entries   []entryJSON
}

type blobJSON struct {
	Version            uint16
	UniqueAPCBInstance uint32
	Groups             []groupJSON
}

// Export writes the blob structure as JSON. Any blob satisfying the format
// invariants round-trips through Export and Import to an identical byte
// sequence, modulo ChecksumByte and UniqueAPCBInstance, which are stamped by
// Save.
func (a *APCB) Export(w io.Writer) error {
	doc := blobJSON{
		Version:            a.header.Version,
		UniqueAPCBInstance: a.header.UniqueAPCBInstance,
	}
	groups, err := a.Groups()
	if err != nil {
		return err
	}
	for i := range groups {
		group := &groups[i]
		gj := groupJSON{
			Signature: group.Signature(),
			GroupID:   group.ID(),
		}
		entries, err := group.Entries()
		if err != nil {
			return err
		}
		for j := range entries {
			entry := &entries[j]
			ej := entryJSON{
				EntryID:           entry.Header.EntryID,
				InstanceID:        entry.Header.InstanceID,
				BoardInstanceMask: entry.Header.BoardInstanceMask,
				ContextType:       entry.Header.ContextType,
				PriorityMask:      entry.Header.PriorityMask,
			}
			switch ContextType(entry.Header.ContextType) {
			case ContextTypeTokens:
				stream, err := entry.Body.TokenStream()
				if err != nil {
					return err
				}
				for _, t := range stream.Tokens() {
					ej.Tokens = append(ej.Tokens, tokenJSON{Key: t.Key, Value: t.Value})
				}
			case ContextTypeStruct:
				body, err := entry.Body.StructBody()
				if err != nil {
					return err
				}
				ej.Payload = hex.EncodeToString(body)
			case ContextTypeParameters:
				body, err := entry.Body.Parameters()
				if err != nil {
					return err
				}
				ej.Payload = hex.EncodeToString(body)
			}
			gj.Entries = append(gj.Entries, ej)
		}
		doc.Groups = append(doc.Groups, gj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import replays a JSON document into buf through Create and the insert
// operations, then refreshes the checksum.
func Import(buf []byte, r io.Reader, opts *Options) (*APCB, error) {
	var doc blobJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("apcb: decoding JSON document: %w", err)
	}
	a, err := Create(buf, doc.UniqueAPCBInstance, opts)
	if err != nil {
		return nil, err
	}
	for _, gj := range doc.Groups {
		var signature [4]byte
		copy(signature[:], gj.Signature)
		if err := a.InsertGroup(gj.GroupID, signature); err != nil {
			return nil, err
		}
		for _, ej := range gj.Entries {
			contextType := ContextType(ej.ContextType)
			if contextType == ContextTypeTokens {
				err := a.InsertEntry(gj.GroupID, ej.EntryID, ej.InstanceID,
					ej.BoardInstanceMask, contextType, nil, ej.PriorityMask)
				if err != nil {
					return nil, err
				}
				for _, tj := range ej.Tokens {
					err := a.InsertToken(gj.GroupID, ej.EntryID, ej.InstanceID,
						ej.BoardInstanceMask, tj.Key, tj.Value)
					if err != nil {
						return nil, err
					}
				}
				continue
			}
			payload, err := hex.DecodeString(ej.Payload)
			if err != nil {
				return nil, fmt.Errorf("apcb: decoding entry payload: %w", err)
			}
			err = a.InsertEntry(gj.GroupID, ej.EntryID, ej.InstanceID,
				ej.BoardInstanceMask, contextType, payload, ej.PriorityMask)
			if err != nil {
				return nil, err
			}
		}
	}
	if err := UpdateChecksum(buf); err != nil {
		return nil, err
	}
	return a, nil
}
