// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// apcbtool manipulates AMD PSP Configuration Blobs (APCB).
//
// Synopsis:
//     apcbtool create -f APCB_FILE [--size N] [--instance N]
//     apcbtool show -f APCB_FILE [--tokens] [--digest]
//     apcbtool insert-group -f APCB_FILE --group ID [--signature SIG]
//     apcbtool delete-group -f APCB_FILE --group ID
//     apcbtool insert-entry -f APCB_FILE --group ID --entry ID [options]
//     apcbtool delete-entry -f APCB_FILE --group ID --entry ID [options]
//     apcbtool set-token -f APCB_FILE --group ID --kind KIND --id TOKEN --value N
//     apcbtool delete-token -f APCB_FILE --group ID --kind KIND --id TOKEN
//     apcbtool export -f APCB_FILE [-o JSON_FILE]
//     apcbtool import -i JSON_FILE -f APCB_FILE [--size N]
//
// An example:
//     apcbtool create -f apcb.bin
//     apcbtool insert-group -f apcb.bin --group 0x3000
//     apcbtool insert-entry -f apcb.bin --group 0x3000 --entry 1 --context tokens
//     apcbtool set-token -f apcb.bin --group 0x3000 --kind byte --id 0x42 --value 7
//     apcbtool show -f apcb.bin --tokens
//
// Input files may be xz-, zstd- or lz4-compressed; they are sniffed by their
// frame magic.
package main

import (
	"github.com/jessevdk/go-flags"

	"github.com/linuxboot/apcb/pkg/log"
)

// command is the interface of implementations of verbs (like "show" of
// "apcbtool show").
type command interface {
	flags.Commander

	// ShortDescription explains what this command does in one line
	ShortDescription() string

	// LongDescription explains what this verb does (without limitation in
	// amount of lines)
	LongDescription() string
}

var knownCommands = map[string]command{
	"create":       &createCommand{},
	"show":         &showCommand{},
	"insert-group": &insertGroupCommand{},
	"delete-group": &deleteGroupCommand{},
	"insert-entry": &insertEntryCommand{},
	"delete-entry": &deleteEntryCommand{},
	"set-token":    &setTokenCommand{},
	"delete-token": &deleteTokenCommand{},
	"export":       &exportCommand{},
	"import":       &importCommand{},
}

func main() {
	flagsParser := flags.NewParser(nil, flags.Default)
	for commandName, cmd := range knownCommands {
		_, err := flagsParser.AddCommand(commandName, cmd.ShortDescription(), cmd.LongDescription(), cmd)
		if err != nil {
			panic(err)
		}
	}

	// parse arguments and execute the appropriate command
	if _, err := flagsParser.Parse(); err != nil {
		log.Fatalf("%v", err)
	}
}
