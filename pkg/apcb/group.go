// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import "errors"

// Group is a read view of one group: its decoded header and the body slice
// covering the group's used bytes. The body borrows from the blob buffer and
// is invalidated by any structural mutation.
type Group struct {
	Header GroupHeader
	// offset of the group header inside the groups region
	offset int
	body   []byte
}

// Signature is the group's 4-character ASCII signature.
func (g *Group) Signature() string {
	return string(g.Header.Signature[:])
}

// ID is the group id.
func (g *Group) ID() uint16 {
	return g.Header.GroupID
}

// Entries decodes all entries of the group in stored (sort key) order.
func (g *Group) Entries() ([]Entry, error) {
	var result []Entry
	err := walkEntries(g.Header.GroupID, g.body, func(_ int, hdr EntryHeader, payload []byte) error {
		body, err := newEntryBody(hdr.UnitSize, hdr.EntryID, ContextType(hdr.ContextType), payload)
		if err != nil {
			return err
		}
		result = append(result, Entry{Header: hdr, Body: body})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Entry finds the entry with the given composite key.
func (g *Group) Entry(entryID, instanceID, boardInstanceMask uint16) (*Entry, error) {
	key := entryKey{g.Header.GroupID, entryID, instanceID, boardInstanceMask}
	entries, err := g.Entries()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Header.compositeKey() == key {
			return &entries[i], nil
		}
	}
	return nil, ErrEntryNotFound
}

// paddedEntrySize is the number of body bytes an entry occupies, pad
// included.
func paddedEntrySize(entrySize uint16) int {
	size := int(entrySize)
	if rem := size % entryAlignment; rem != 0 {
		size += entryAlignment - rem
	}
	return size
}

// walkEntries iterates the entries stored in body, calling fn with each
// entry's header-start offset, decoded header, and payload slice. body must
// cover exactly the live bytes to iterate; the caller shrinks it while a
// freshly reserved tail is still uninitialized.
func walkEntries(groupID uint16, body []byte, fn func(off int, hdr EntryHeader, payload []byte) error) error {
	cur := newCursor(body)
	for cur.remaining() > 0 {
		off := cur.offset()
		var hdr EntryHeader
		if !cur.takeHeader(&hdr) {
			return fsErr(InconsistentHeader, "ENTRY_HEADER")
		}
		if int(hdr.EntrySize) < entryHeaderSize {
			return fsErr(InconsistentHeader, "ENTRY_HEADER::entry_size")
		}
		payload, ok := cur.takeBody(int(hdr.EntrySize)-entryHeaderSize, entryAlignment)
		if !ok {
			return fsErr(InconsistentHeader, "ENTRY_HEADER::entry_size")
		}
		if hdr.GroupID != groupID {
			return fsErr(InconsistentHeader, "ENTRY_HEADER::group_id")
		}
		if err := fn(off, hdr, payload); err != nil {
			return err
		}
	}
	return nil
}

// errStopWalk terminates a walk early without reporting a failure.
var errStopWalk = errors.New("stop walk")

// findEntry locates the entry with the given composite key inside body.
func findEntry(groupID uint16, body []byte, key entryKey) (off int, hdr EntryHeader, err error) {
	found := false
	err = walkEntries(groupID, body, func(o int, h EntryHeader, _ []byte) error {
		if h.compositeKey() == key {
			off, hdr, found = o, h, true
			return errStopWalk
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return 0, EntryHeader{}, err
	}
	if !found {
		return 0, EntryHeader{}, ErrEntryNotFound
	}
	return off, hdr, nil
}

// insertionPoint returns the offset inside body before which an entry with
// the given composite key belongs, advancing past all entries whose key
// strictly precedes it. A present duplicate of the full composite is an
// ErrEntryUniqueKeyViolation.
func insertionPoint(groupID uint16, body []byte, key entryKey) (int, error) {
	point := len(body)
	var dup bool
	err := walkEntries(groupID, body, func(off int, hdr EntryHeader, _ []byte) error {
		k := hdr.compositeKey()
		if k == key {
			dup = true
			return errStopWalk
		}
		if !k.less(key) {
			point = off
			return errStopWalk
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return 0, err
	}
	if dup {
		return 0, ErrEntryUniqueKeyViolation
	}
	return point, nil
}

// groupInsertEntry writes a new entry into a group body whose tail already
// holds `allocation` freshly reserved bytes. body spans the grown group
// body; the live entries occupy body[:len(body)-allocation].
func groupInsertEntry(groupID uint16, body []byte, allocation int, hdr EntryHeader, payload []byte) error {
	limit := len(body) - allocation
	if limit < 0 {
		return fsErr(InconsistentHeader, "GROUP_HEADER::group_size")
	}
	point, err := insertionPoint(groupID, body[:limit], hdr.compositeKey())
	if err != nil {
		return err
	}
	// Make room before the insertion point.
	copy(body[point+allocation:limit+allocation], body[point:limit])
	if err := writeAt(body, point, &hdr); err != nil {
		return err
	}
	copy(body[point+entryHeaderSize:], payload)
	// Deterministic pad bytes.
	for i := point + entryHeaderSize + len(payload); i < point+allocation; i++ {
		body[i] = 0
	}
	return nil
}

// groupDeleteEntry removes the entry with the given key from body, shifting
// the group tail left. It returns the number of bytes removed; the caller
// shrinks the group and blob size fields. A missing entry removes zero
// bytes.
func groupDeleteEntry(groupID uint16, body []byte, key entryKey) (int, error) {
	off, hdr, err := findEntry(groupID, body, key)
	if err == ErrEntryNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := paddedEntrySize(hdr.EntrySize)
	copy(body[off:], body[off+removed:])
	return removed, nil
}

// groupResizeEntryBy grows or shrinks the entry with the given key by delta
// bytes, shifting the rest of the group body and rewriting the entry
// header's size field. When delta > 0, body already includes the freshly
// reserved tail and the live entries occupy body[:len(body)-delta].
// It returns the entry's header offset and its new size.
func groupResizeEntryBy(groupID uint16, body []byte, key entryKey, delta int) (int, uint16, error) {
	limit := len(body)
	if delta > 0 {
		limit -= delta
	}
	if limit < 0 {
		return 0, 0, fsErr(InconsistentHeader, "GROUP_HEADER::group_size")
	}
	off, hdr, err := findEntry(groupID, body[:limit], key)
	if err != nil {
		return 0, 0, err
	}
	oldSize := paddedEntrySize(hdr.EntrySize)
	newSize := oldSize + delta
	if newSize < entryHeaderSize || newSize > 0xFFFF {
		return 0, 0, ErrArithmeticOverflow
	}
	end := off + oldSize
	copy(body[off+newSize:], body[end:limit])
	hdr.EntrySize = uint16(newSize)
	if err := writeAt(body, off, &hdr); err != nil {
		return 0, 0, err
	}
	return off, hdr.EntrySize, nil
}
