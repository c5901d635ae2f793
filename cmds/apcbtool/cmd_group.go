// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

type insertGroupCommand struct {
	File      string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group     string `long:"group" required:"true" description:"group id, e.g. 0x1701"`
	Signature string `long:"signature" description:"4-character group signature (default: the group id's convention)"`
}

func (cmd *insertGroupCommand) ShortDescription() string {
	return "append an empty group"
}

func (cmd *insertGroupCommand) LongDescription() string {
	return "Appends an empty group after the last one; group ids must be unique."
}

func (cmd *insertGroupCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	signature, err := groupSignature(groupID, cmd.Signature)
	if err != nil {
		return err
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	if err := a.InsertGroup(groupID, signature); err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}

type deleteGroupCommand struct {
	File  string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Group string `long:"group" required:"true" description:"group id, e.g. 0x1701"`
}

func (cmd *deleteGroupCommand) ShortDescription() string {
	return "delete a group and everything in it"
}

func (cmd *deleteGroupCommand) LongDescription() string {
	return "Deletes the group with the given id, shifting the rest of the blob down."
}

func (cmd *deleteGroupCommand) Execute(args []string) error {
	groupID, err := parseUint16(cmd.Group)
	if err != nil {
		return err
	}
	a, err := loadBlob(cmd.File, defaultBufferSize())
	if err != nil {
		return err
	}
	if err := a.DeleteGroup(groupID); err != nil {
		return err
	}
	return saveBlob(cmd.File, a)
}
