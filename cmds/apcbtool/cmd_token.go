// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"

	"github.com/linuxboot/apcb/pkg/apcb"
)

type setTokenCommand struct {
	File        string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group       string `long:"group" default:"0x3000" description:"group id"`
	Kind        string `long:"kind" required:"true" description:"token kind: bool, byte, word or dword"`
	Instance    string `long:"instance" default:"0" description:"instance id"`
	BoardMask   string `long:"board-mask" default:"0xFFFF" description:"board instance mask"`
	ID          string `long:"id" required:"true" description:"token id, e.g. 0xAE46CEA4"`
	Value       string `long:"value" required:"true" description:"token value"`
	CreateEntry bool   `long:"create-entry" description:"create the Tokens entry if it does not exist"`
}

func (cmd *setTokenCommand) ShortDescription() string {
	return "insert a token or update its value"
}

func (cmd *setTokenCommand) LongDescription() string {
	return "Updates the token if present, inserts it at its sort position otherwise. With --create-entry, also creates the enclosing Tokens entry on demand."
}

func (cmd *setTokenCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	kind, err := parseTokenKind(cmd.Kind)
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
	tokenID, err := parseUint32(cmd.ID)
	if err != nil {
		return err
	}
	value, err := parseUint32(cmd.Value)
	if err != nil {
		return err
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	entryID := uint16(kind)
	if cmd.CreateEntry {
		_, err := a.Entry(groupID, entryID, instanceID, boardMask)
		if errors.Is(err, apcb.ErrEntryNotFound) {
			err = a.InsertEntry(groupID, entryID, instanceID, boardMask,
				apcb.ContextTypeTokens, nil, defaultPriorityMask())
		}
		if err != nil {
			return err
		}
	}
	err = a.UpdateToken(groupID, entryID, instanceID, boardMask, tokenID, value)
	if errors.Is(err, apcb.ErrTokenNotFound) {
		err = a.InsertToken(groupID, entryID, instanceID, boardMask, tokenID, value)
	}
	if err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}

type deleteTokenCommand struct {
	File      string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group     string `long:"group" default:"0x3000" description:"group id"`
	Kind      string `long:"kind" required:"true" description:"token kind: bool, byte, word or dword"`
	Instance  string `long:"instance" default:"0" description:"instance id"`
	BoardMask string `long:"board-mask" default:"0xFFFF" description:"board instance mask"`
	ID        string `long:"id" required:"true" description:"token id"`
}

func (cmd *deleteTokenCommand) ShortDescription() string {
	return "delete a token"
}

func (cmd *deleteTokenCommand) LongDescription() string {
	return "Deletes one token record, shrinking the entry, its group and the blob."
}

func (cmd *deleteTokenCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	kind, err := parseTokenKind(cmd.Kind)
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
	tokenID, err := parseUint32(cmd.ID)
	if err != nil {
		return err
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	if err := a.DeleteToken(groupID, uint16(kind), instanceID, boardMask, tokenID); err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}
