// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"github.com/hashicorp/go-multierror"
)

// Validate walks the whole blob and reports every invariant violation it
// finds: size-field consistency across the nested headers, entry ordering
// and uniqueness inside groups, body classification, and token stream
// ordering. A nil result means none of these checks failed; the
// context_format, key_size and key_pos fields of Tokens entries are not
// checked.
func (a *APCB) Validate() error {
	var result *multierror.Error

	total := 0
	groupIDs := map[uint16]bool{}
	err := a.forEachGroup(func(_ int, hdr GroupHeader, body []byte) error {
		total += int(hdr.GroupSize)
		if groupIDs[hdr.GroupID] {
			result = multierror.Append(result, ErrGroupUniqueKeyViolation)
		}
		groupIDs[hdr.GroupID] = true

		entryBytes := groupHeaderSize
		var prev entryKey
		first := true
		werr := walkEntries(hdr.GroupID, body, func(_ int, eh EntryHeader, payload []byte) error {
			entryBytes += paddedEntrySize(eh.EntrySize)
			key := eh.compositeKey()
			if !first && !prev.less(key) {
				if prev == key {
					result = multierror.Append(result, ErrEntryUniqueKeyViolation)
				} else {
					result = multierror.Append(result, fsErr(InconsistentHeader, "ENTRY_HEADER::entry_id"))
				}
			}
			first = false
			prev = key
			ebody, err := newEntryBody(eh.UnitSize, eh.EntryID, ContextType(eh.ContextType), payload)
			if err != nil {
				result = multierror.Append(result, err)
				return nil
			}
			entry := Entry{Header: eh, Body: ebody}
			if err := entry.validate(); err != nil {
				result = multierror.Append(result, err)
			}
			return nil
		})
		if werr != nil {
			result = multierror.Append(result, werr)
		}
		if entryBytes != int(hdr.GroupSize) {
			result = multierror.Append(result, fsErr(InconsistentHeader, "GROUP_HEADER::group_size"))
		}
		return nil
	})
	if err != nil {
		result = multierror.Append(result, err)
	}
	if total != a.usedSize {
		result = multierror.Append(result, fsErr(InconsistentHeader, "V2_HEADER::apcb_size"))
	}
	return result.ErrorOrNil()
}
