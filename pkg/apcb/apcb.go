// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

// Options tunes how a blob is interpreted.
type Options struct {
	// Abl0Version, when set, gates token inserts against the known-token
	// table; tokens declared for a newer firmware are rejected with
	// TokenVersionMismatchError. Unknown tokens are always accepted.
	Abl0Version *uint32
}

// APCB edits one AMD PSP Configuration Blob inside a caller-owned byte
// buffer. All mutations happen in place; bytes past APCBSize are scratch.
// The editor exclusively owns the buffer for the duration of a session;
// views handed out by read accessors are invalidated by any mutation.
//
// Mutators are all-or-nothing at the byte level: they either return nil with
// all size fields consistent or return an error without having mutated the
// buffer.
type APCB struct {
	buf    []byte
	header HeaderV2
	ext    *HeaderV3Ext
	// usedSize is the number of group-region bytes in use,
	// APCBSize - HeaderSize.
	usedSize int
	opts     Options
}

// Header returns a copy of the blob header.
func (a *APCB) Header() HeaderV2 {
	return a.header
}

// ExtHeader returns a copy of the V3 extended header, or nil for bare V2
// blobs.
func (a *APCB) ExtHeader() *HeaderV3Ext {
	if a.ext == nil {
		return nil
	}
	ext := *a.ext
	return &ext
}

// Buf returns the backing buffer.
func (a *APCB) Buf() []byte {
	return a.buf
}

// region is the groups region of the buffer (everything after the blob
// header), including scratch space.
func (a *APCB) region() []byte {
	return a.buf[int(a.header.HeaderSize):]
}

func (a *APCB) flushHeader() error {
	// ChecksumByte and UniqueAPCBInstance are stamped on the raw buffer by
	// UpdateChecksum and Save; re-sync them so a stale cache does not
	// clobber a fresh stamp.
	var current HeaderV2
	if err := readAt(a.buf, 0, &current); err != nil {
		return err
	}
	a.header.UniqueAPCBInstance = current.UniqueAPCBInstance
	a.header.ChecksumByte = current.ChecksumByte
	return writeAt(a.buf, 0, &a.header)
}

// Load parses the blob stored in buf. The buffer must hold at least APCBSize
// bytes and pass the checksum.
func Load(buf []byte, opts *Options) (*APCB, error) {
	cur := newCursor(buf)
	var hdr HeaderV2
	if !cur.takeHeader(&hdr) {
		return nil, fsErr(InconsistentHeader, "V2_HEADER")
	}
	if hdr.Signature != headerV2Signature {
		return nil, fsErr(InconsistentHeader, "V2_HEADER::signature")
	}
	if hdr.Version != 0x30 {
		return nil, fsErr(InconsistentHeader, "V2_HEADER::version")
	}
	var ext *HeaderV3Ext
	switch int(hdr.HeaderSize) {
	case headerV2Size:
		// bare V2 header
	case headerV3Size:
		var e HeaderV3Ext
		if !cur.takeHeader(&e) {
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT")
		}
		switch {
		case e.Signature != headerV3Signature:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::signature")
		case e.StructVersion != 0x12:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::struct_version")
		case e.DataVersion != 0x100:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::data_version")
		case e.ExtHeaderSize != headerV3ExtSize:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::ext_header_size")
		case e.DataOffset != 0x58:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::data_offset")
		case e.SignatureEnding != headerV3EndingSignature:
			return nil, fsErr(InconsistentHeader, "V3_HEADER_EXT::signature_ending")
		}
		ext = &e
	default:
		// Neither a bare V2 nor a V2+V3 header. Nothing in the wild
		// carries other sizes; reject.
		return nil, fsErr(InconsistentHeader, "V2_HEADER::header_size")
	}
	if hdr.APCBSize < uint32(hdr.HeaderSize) {
		return nil, fsErr(InconsistentHeader, "V2_HEADER::apcb_size")
	}
	usedSize := int(hdr.APCBSize) - int(hdr.HeaderSize)
	if usedSize > len(buf)-int(hdr.HeaderSize) {
		return nil, fsErr(InconsistentHeader, "V2_HEADER::apcb_size")
	}
	if sumBytes(buf[:hdr.APCBSize]) != 0 {
		return nil, fsErr(InconsistentHeader, "V2_HEADER::checksum_byte")
	}
	a := &APCB{
		buf:      buf,
		header:   hdr,
		ext:      ext,
		usedSize: usedSize,
	}
	if opts != nil {
		a.opts = *opts
	}
	return a, nil
}

// Create initializes buf with an empty blob: the buffer is filled with the
// 0xFF flash sentinel, then the V2 header and V3 extension are written.
func Create(buf []byte, uniqueInstance uint32, opts *Options) (*APCB, error) {
	if len(buf) < headerV3Size {
		return nil, ErrOutOfSpace
	}
	for i := range buf {
		buf[i] = 0xFF
	}
	hdr := newHeaderV2()
	hdr.HeaderSize = headerV3Size
	hdr.APCBSize = headerV3Size
	hdr.UniqueAPCBInstance = uniqueInstance
	if err := writeAt(buf, 0, &hdr); err != nil {
		return nil, err
	}
	ext := newHeaderV3Ext()
	if err := writeAt(buf, headerV2Size, &ext); err != nil {
		return nil, err
	}
	if err := UpdateChecksum(buf); err != nil {
		return nil, err
	}
	return Load(buf, opts)
}

// forEachGroup walks the groups in buffer order, passing each group's
// header-start offset (inside the groups region), decoded header and body
// slice.
func (a *APCB) forEachGroup(fn func(off int, hdr GroupHeader, body []byte) error) error {
	cur := newCursor(a.region()[:a.usedSize])
	for cur.remaining() > 0 {
		off := cur.offset()
		var hdr GroupHeader
		if !cur.takeHeader(&hdr) {
			return fsErr(InconsistentHeader, "GROUP_HEADER")
		}
		if int(hdr.GroupSize) < groupHeaderSize {
			return fsErr(InconsistentHeader, "GROUP_HEADER::group_size")
		}
		body, ok := cur.takeBody(int(hdr.GroupSize)-groupHeaderSize, 1)
		if !ok {
			return fsErr(InconsistentHeader, "GROUP_HEADER::group_size")
		}
		if err := fn(off, hdr, body); err != nil {
			return err
		}
	}
	return nil
}

// Groups decodes all groups in buffer order.
func (a *APCB) Groups() ([]Group, error) {
	var result []Group
	err := a.forEachGroup(func(off int, hdr GroupHeader, body []byte) error {
		result = append(result, Group{Header: hdr, offset: off, body: body})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Group finds the group with the given id.
func (a *APCB) Group(groupID uint16) (*Group, error) {
	off, hdr, err := a.findGroup(groupID)
	if err != nil {
		return nil, err
	}
	body := a.region()[off+groupHeaderSize : off+int(hdr.GroupSize)]
	return &Group{Header: hdr, offset: off, body: body}, nil
}

func (a *APCB) findGroup(groupID uint16) (int, GroupHeader, error) {
	var (
		foundOff int
		foundHdr GroupHeader
		found    bool
	)
	err := a.forEachGroup(func(off int, hdr GroupHeader, _ []byte) error {
		if hdr.GroupID == groupID {
			foundOff, foundHdr, found = off, hdr, true
			return errStopWalk
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return 0, GroupHeader{}, err
	}
	if !found {
		return 0, GroupHeader{}, ErrGroupNotFound
	}
	return foundOff, foundHdr, nil
}

// Entry finds the entry with the given composite key.
func (a *APCB) Entry(groupID, entryID, instanceID, boardInstanceMask uint16) (*Entry, error) {
	group, err := a.Group(groupID)
	if err != nil {
		return nil, err
	}
	return group.Entry(entryID, instanceID, boardInstanceMask)
}

// InsertGroup appends a new empty group. Groups are kept in insertion order,
// not sorted; the group id must not be present yet.
func (a *APCB) InsertGroup(groupID uint16, signature [4]byte) error {
	if _, _, err := a.findGroup(groupID); err == nil {
		return ErrGroupUniqueKeyViolation
	} else if err != ErrGroupNotFound {
		return err
	}
	newAPCBSize := uint64(a.header.APCBSize) + groupHeaderSize
	if newAPCBSize > 0xFFFF_FFFF {
		return ErrArithmeticOverflow
	}
	if int(a.header.HeaderSize)+a.usedSize+groupHeaderSize > len(a.buf) {
		return ErrOutOfSpace
	}
	hdr := newGroupHeader()
	hdr.Signature = signature
	hdr.GroupID = groupID
	if err := writeAt(a.region(), a.usedSize, &hdr); err != nil {
		return err
	}
	a.usedSize += groupHeaderSize
	a.header.APCBSize = uint32(newAPCBSize)
	return a.flushHeader()
}

// DeleteGroup removes a group and everything in it, shifting the rest of the
// blob down.
func (a *APCB) DeleteGroup(groupID uint16) error {
	off, hdr, err := a.findGroup(groupID)
	if err != nil {
		return err
	}
	size := int(hdr.GroupSize)
	region := a.region()
	copy(region[off:], region[off+size:a.usedSize])
	a.usedSize -= size
	a.header.APCBSize -= uint32(size)
	return a.flushHeader()
}

// ResizeGroupBy grows or shrinks a group by delta bytes, keeping APCBSize
// and the group's GroupSize consistent and shifting the tail of the blob
// after the group. The freshly exposed bytes of a grown group are
// uninitialized; callers account for them before iterating.
func (a *APCB) ResizeGroupBy(groupID uint16, delta int) error {
	off, hdr, err := a.findGroup(groupID)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	if delta > 0 {
		if uint64(a.header.APCBSize)+uint64(delta) > 0xFFFF_FFFF ||
			uint64(hdr.GroupSize)+uint64(delta) > 0xFFFF_FFFF {
			return ErrArithmeticOverflow
		}
		if int(a.header.HeaderSize)+a.usedSize+delta > len(a.buf) {
			return ErrOutOfSpace
		}
	} else {
		if int(hdr.GroupSize)+delta < groupHeaderSize {
			return fsErr(InconsistentHeader, "GROUP_HEADER::group_size")
		}
	}
	region := a.region()
	end := off + int(hdr.GroupSize)
	copy(region[end+delta:a.usedSize+delta], region[end:a.usedSize])
	hdr.GroupSize = uint32(int(hdr.GroupSize) + delta)
	if err := writeAt(region, off, &hdr); err != nil {
		return err
	}
	a.usedSize += delta
	a.header.APCBSize = uint32(int(a.header.APCBSize) + delta)
	return a.flushHeader()
}

// InsertEntry inserts a new entry at its sort position inside the group. The
// entry allocation is the header plus the payload, padded to the entry
// alignment; pad bytes are zeroed. For Tokens entries the payload, if any,
// must already be a valid token stream.
func (a *APCB) InsertEntry(groupID, entryID, instanceID, boardInstanceMask uint16, contextType ContextType, payload []byte, priorityMask uint8) error {
	if !contextType.valid() {
		return fsErr(InconsistentHeader, "ENTRY_HEADER::context_type")
	}
	allocation := entryHeaderSize + len(payload)
	if rem := allocation % entryAlignment; rem != 0 {
		allocation += entryAlignment - rem
	}
	if allocation > 0xFFFF {
		return fsErr(PayloadTooBig, "ENTRY_HEADER::entry_size")
	}
	if contextType == ContextTypeTokens {
		stream, err := newTokenStream(tokenPairSize, entryID, payload)
		if err != nil {
			return err
		}
		if err := stream.validate(); err != nil {
			return err
		}
	}
	off, ghdr, err := a.findGroup(groupID)
	if err != nil {
		return err
	}
	key := entryKey{groupID, entryID, instanceID, boardInstanceMask}
	body := a.region()[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	if _, _, err := findEntry(groupID, body, key); err == nil {
		return ErrEntryUniqueKeyViolation
	} else if err != ErrEntryNotFound {
		return err
	}
	if int(a.header.HeaderSize)+a.usedSize+allocation > len(a.buf) {
		return ErrOutOfSpace
	}
	if err := a.ResizeGroupBy(groupID, allocation); err != nil {
		return err
	}
	off, ghdr, err = a.findGroup(groupID)
	if err != nil {
		return err
	}
	body = a.region()[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	hdr := newEntryHeader()
	hdr.GroupID = groupID
	hdr.EntryID = entryID
	hdr.EntrySize = uint16(allocation)
	hdr.InstanceID = instanceID
	hdr.ContextType = uint8(contextType)
	hdr.ContextFormat = uint8(ContextFormatRaw)
	hdr.PriorityMask = priorityMask
	hdr.BoardInstanceMask = boardInstanceMask
	if contextType == ContextTypeTokens {
		hdr.ContextFormat = uint8(ContextFormatSortAscending)
		hdr.UnitSize = tokenPairSize
		hdr.KeySize = 4
		hdr.KeyPos = 0
	}
	return groupInsertEntry(groupID, body, allocation, hdr, payload)
}

// DeleteEntry removes the entry with the given composite key, shifting the
// rest of the group and the blob down. Deleting an absent entry is a no-op.
func (a *APCB) DeleteEntry(groupID, entryID, instanceID, boardInstanceMask uint16) error {
	off, ghdr, err := a.findGroup(groupID)
	if err != nil {
		return err
	}
	key := entryKey{groupID, entryID, instanceID, boardInstanceMask}
	region := a.region()
	body := region[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	removed, err := groupDeleteEntry(groupID, body, key)
	if err != nil || removed == 0 {
		return err
	}
	end := off + int(ghdr.GroupSize)
	copy(region[end-removed:], region[end:a.usedSize])
	ghdr.GroupSize -= uint32(removed)
	if err := writeAt(region, off, &ghdr); err != nil {
		return err
	}
	a.usedSize -= removed
	a.header.APCBSize -= uint32(removed)
	return a.flushHeader()
}

// locateTokenEntry finds a Tokens entry and returns its group offset, group
// header, entry offset inside the group body, and entry header.
func (a *APCB) locateTokenEntry(groupID, entryID, instanceID, boardInstanceMask uint16) (int, GroupHeader, int, EntryHeader, error) {
	off, ghdr, err := a.findGroup(groupID)
	if err != nil {
		return 0, GroupHeader{}, 0, EntryHeader{}, err
	}
	key := entryKey{groupID, entryID, instanceID, boardInstanceMask}
	body := a.region()[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	eoff, ehdr, err := findEntry(groupID, body, key)
	if err != nil {
		return 0, GroupHeader{}, 0, EntryHeader{}, err
	}
	if ContextType(ehdr.ContextType) != ContextTypeTokens {
		return 0, GroupHeader{}, 0, EntryHeader{}, ErrEntryTypeMismatch
	}
	return off, ghdr, eoff, ehdr, nil
}

// tokenStreamAt builds the token view over an entry's payload inside the
// group body.
func tokenStreamAt(body []byte, eoff int, ehdr EntryHeader) (*TokenStream, error) {
	payload := body[eoff+entryHeaderSize : eoff+paddedEntrySize(ehdr.EntrySize)]
	return newTokenStream(ehdr.UnitSize, ehdr.EntryID, payload)
}

// InsertToken inserts (tokenID, tokenValue) into a Tokens entry, growing the
// entry, its group and the blob by one token record and keeping the token
// stream sorted.
func (a *APCB) InsertToken(groupID, entryID, instanceID, boardInstanceMask uint16, tokenID, tokenValue uint32) error {
	off, ghdr, eoff, ehdr, err := a.locateTokenEntry(groupID, entryID, instanceID, boardInstanceMask)
	if err != nil {
		return err
	}
	kind := TokenKind(ehdr.EntryID)
	if tokenValue&^kind.Mask() != 0 {
		return ErrTokenRange
	}
	if err := checkTokenVersion(kind, tokenID, a.opts.Abl0Version); err != nil {
		return err
	}
	region := a.region()
	body := region[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	stream, err := tokenStreamAt(body, eoff, ehdr)
	if err != nil {
		return err
	}
	if _, err := stream.Token(tokenID); err == nil {
		return ErrTokenUniqueKeyViolation
	}
	if int(ehdr.EntrySize)+tokenPairSize > 0xFFFF {
		return ErrArithmeticOverflow
	}
	if int(a.header.HeaderSize)+a.usedSize+tokenPairSize > len(a.buf) {
		return ErrOutOfSpace
	}
	if err := a.ResizeGroupBy(groupID, tokenPairSize); err != nil {
		return err
	}
	// The group body now carries one record of reserved, uninitialized
	// space at its end; groupResizeEntryBy keeps it out of the iteration
	// while moving it into the entry.
	off, ghdr, err = a.findGroup(groupID)
	if err != nil {
		return err
	}
	key := entryKey{groupID, entryID, instanceID, boardInstanceMask}
	body = region[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	eoff, newSize, err := groupResizeEntryBy(groupID, body, key, tokenPairSize)
	if err != nil {
		return err
	}
	payload := body[eoff+entryHeaderSize : eoff+int(newSize)]
	stream, err = newTokenStream(ehdr.UnitSize, ehdr.EntryID, payload)
	if err != nil {
		return err
	}
	return stream.insert(tokenID, tokenValue)
}

// UpdateToken overwrites the value of an existing token, masked to the token
// kind's width.
func (a *APCB) UpdateToken(groupID, entryID, instanceID, boardInstanceMask uint16, tokenID, tokenValue uint32) error {
	off, ghdr, eoff, ehdr, err := a.locateTokenEntry(groupID, entryID, instanceID, boardInstanceMask)
	if err != nil {
		return err
	}
	body := a.region()[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	stream, err := tokenStreamAt(body, eoff, ehdr)
	if err != nil {
		return err
	}
	return stream.update(tokenID, tokenValue)
}

// Token reads one token from a Tokens entry.
func (a *APCB) Token(groupID, entryID, instanceID, boardInstanceMask uint16, tokenID uint32) (Token, error) {
	off, ghdr, eoff, ehdr, err := a.locateTokenEntry(groupID, entryID, instanceID, boardInstanceMask)
	if err != nil {
		return Token{}, err
	}
	body := a.region()[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	stream, err := tokenStreamAt(body, eoff, ehdr)
	if err != nil {
		return Token{}, err
	}
	return stream.Token(tokenID)
}

// DeleteToken removes a token from a Tokens entry, shrinking the entry, its
// group and the blob by one token record.
func (a *APCB) DeleteToken(groupID, entryID, instanceID, boardInstanceMask uint16, tokenID uint32) error {
	off, ghdr, eoff, ehdr, err := a.locateTokenEntry(groupID, entryID, instanceID, boardInstanceMask)
	if err != nil {
		return err
	}
	region := a.region()
	body := region[off+groupHeaderSize : off+int(ghdr.GroupSize)]
	stream, err := tokenStreamAt(body, eoff, ehdr)
	if err != nil {
		return err
	}
	if err := stream.delete(tokenID); err != nil {
		return err
	}
	key := entryKey{groupID, entryID, instanceID, boardInstanceMask}
	if _, _, err := groupResizeEntryBy(groupID, body, key, -tokenPairSize); err != nil {
		return err
	}
	return a.ResizeGroupBy(groupID, -tokenPairSize)
}

func sumBytes(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}
