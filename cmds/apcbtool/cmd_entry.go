// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
)

type insertEntryCommand struct {
	File      string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group     string `long:"group" required:"true" description:"group id"`
	Entry     string `long:"entry" required:"true" description:"entry id"`
	Instance  string `long:"instance" default:"0" description:"instance id"`
	BoardMask string `long:"board-mask" default:"0xFFFF" description:"board instance mask"`
	Context   string `long:"context" default:"struct" description:"entry body variant: struct, parameters or tokens"`
	Payload   string `long:"payload" description:"entry payload as hex"`
	Priority  string `long:"priority" description:"priority mask (default: $APCBTOOL_PRIORITY or 0x20)"`
}

func (cmd *insertEntryCommand) ShortDescription() string {
	return "insert an entry at its sort position"
}

func (cmd *insertEntryCommand) LongDescription() string {
	return "Inserts an entry keyed by (entry id, instance id, board mask) into a group, keeping entries sorted."
}

func (cmd *insertEntryCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	entryID, err := parseUint16(cmd.Entry)
	if err != nil {
		return err
	}
	instanceID, err := parseUint16(cmd.Instance)
	if err != nil {
		return err
	}
	boardMask, err := parseUint16(cmd.BoardMask)
	if err != nil {
		return err
	}
	contextType, err := parseContextType(cmd.Context)
	if err != nil {
		return err
	}
	priority := defaultPriorityMask()
	if cmd.Priority != "" {
		p, err := parseNum(cmd.Priority, 8)
		if err != nil {
			return err
		}
		priority = uint8(p)
	}
	payload, err := hex.DecodeString(cmd.Payload)
	if err != nil {
		return fmt.Errorf("invalid payload hex: %w", err)
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	if err := a.InsertEntry(groupID, entryID, instanceID, boardMask, contextType, payload, priority); err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}

type deleteEntryCommand struct {
	File      string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group     string `long:"group" required:"true" description:"group id"`
	Entry     string `long:"entry" required:"true" description:"entry id"`
	Instance  string `long:"instance" default:"0" description:"instance id"`
	BoardMask string `long:"board-mask" default:"0xFFFF" description:"board instance mask"`
}

func (cmd *deleteEntryCommand) ShortDescription() string {
	return "delete an entry"
}

func (cmd *deleteEntryCommand) LongDescription() string {
	return "Deletes the entry keyed by (entry id, instance id, board mask), shifting the group and the blob down."
}

func (cmd *deleteEntryCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	entryID, err := parseUint16(cmd.Entry)
	if err != nil {
		return err
	}
	instanceID, err := parseUint16(cmd.Instance)
	if err != nil {
		return err
	}
	boardMask, err := parseUint16(cmd.BoardMask)
	if err != nil {
		return err
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	if err := a.DeleteEntry(groupID, entryID, instanceID, boardMask); err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}
