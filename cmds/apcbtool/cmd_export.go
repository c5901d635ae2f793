// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/linuxboot/apcb/pkg/apcb"
)

type exportCommand struct {
	File   string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Output string `short:"o" long:"output" description:"JSON output path (default: stdout)"`
}

func (cmd *exportCommand) ShortDescription() string {
	return "export the blob structure as JSON"
}

func (cmd *exportCommand) LongDescription() string {
	return "Writes a JSON document that import replays into an identical image, modulo the stamped checksum and instance fields."
}

func (cmd *exportCommand) Execute(args []string) error {
	a, err := loadBlob(cmd.File, 0)
	if err != nil {
		return err
	}
	out := os.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return a.Export(out)
}

type importCommand struct {
	Input string `short:"i" long:"input" required:"true" description:"JSON input path"`
	File  string `short:"f" long:"file" required:"true" description:"path of the APCB image to write"`
	Size  int    `long:"size" description:"buffer size in bytes (default: $APCBTOOL_SIZE or 8192)"`
}

func (cmd *importCommand) ShortDescription() string {
	return "build an APCB image from a JSON document"
}

func (cmd *importCommand) LongDescription() string {
	return "Replays a JSON document through create and the insert operations, then stores the image."
}

func (cmd *importCommand) Execute(args []string) error {
	in, err := os.Open(cmd.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	size := cmd.Size
	if size == 0 {
		size = defaultBufferSize()
	}
	buffer := make([]byte, size)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" importing %s", cmd.Input)
	s.Start()
	_, err = apcb.Import(buffer, in, nil)
	s.Stop()
	if err != nil {
		return err
	}
	return writeBlobBuffer(cmd.File, buffer)
}
