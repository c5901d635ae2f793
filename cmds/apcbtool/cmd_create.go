// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/linuxboot/apcb/pkg/apcb"
)

type createCommand struct {
	File     string `short:"f" long:"file" required:"true" description:"path of the APCB image to create"`
	Size     int    `long:"size" description:"buffer size in bytes (default: $APCBTOOL_SIZE or 8192)"`
	Instance uint32 `long:"instance" description:"initial unique APCB instance"`
}

func (cmd *createCommand) ShortDescription() string {
	return "create an empty APCB image"
}

func (cmd *createCommand) LongDescription() string {
	return "Fills a buffer with the 0xFF flash sentinel, writes the V2 header and V3 extension, and stores the result."
}

func (cmd *createCommand) Execute(args []string) error {
	size := cmd.Size
	if size == 0 {
		size = defaultBufferSize()
	}
	buffer := make([]byte, size)
	if _, err := apcb.Create(buffer, cmd.Instance, nil); err != nil {
		return err
	}
	return writeBlobBuffer(cmd.File, buffer)
}
