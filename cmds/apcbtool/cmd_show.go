// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/camelcase"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tjfoc/gmsm/sm3"

	"github.com/linuxboot/apcb/pkg/apcb"
)

type showCommand struct {
	File   string `short:"f" long:"file" required:"true" description:"path of the APCB image"`
	Tokens bool   `long:"tokens" description:"also list every token"`
	Digest bool   `long:"digest" description:"print SHA-256 and SM3 digests of the used region"`
}

func (cmd *showCommand) ShortDescription() string {
	return "print the blob structure"
}

func (cmd *showCommand) LongDescription() string {
	return "Prints the header summary, one row per group and entry, and optionally every token and a content digest."
}

// spellOut splits a CamelCase identifier into words for display.
func spellOut(name string) string {
	return strings.Join(camelcase.Split(name), " ")
}

func (cmd *showCommand) Execute(args []string) error {
	a, err := loadBlob(cmd.File, 0)
	if err != nil {
		return err
	}
	hdr := a.Header()
	fmt.Printf("APCB v%X.%X, instance %d, %s used\n",
		hdr.Version>>4, hdr.Version&0xF, hdr.UniqueAPCBInstance,
		humanize.IBytes(uint64(hdr.APCBSize)))
	if a.ExtHeader() == nil {
		fmt.Println("header: bare V2")
	} else {
		fmt.Println("header: V2 + V3 extension")
	}
	if cmd.Digest {
		used := a.Buf()[:hdr.APCBSize]
		fmt.Printf("sha256: %x\n", sha256.Sum256(used))
		fmt.Printf("sm3:    %x\n", sm3.Sm3Sum(used))
	}
	fmt.Println()

	groups, err := a.Groups()
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Group", "Signature", "Entry", "Instance", "Board mask", "Context", "Priority", "Size"})
	for i := range groups {
		group := &groups[i]
		entries, err := group.Entries()
		if err != nil {
			return err
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("0x%04X", group.ID()), group.Signature(),
			"", "", "", "",
			"", humanize.IBytes(uint64(group.Header.GroupSize)),
		})
		for j := range entries {
			entry := &entries[j]
			priority := spellOutMask(apcb.PriorityMask(entry.Header.PriorityMask))
			tw.AppendRow(table.Row{
				"", "",
				fmt.Sprintf("0x%04X", entry.Header.EntryID),
				entry.Header.InstanceID,
				fmt.Sprintf("0x%04X", entry.Header.BoardInstanceMask),
				entry.Body.ContextType().String(),
				priority,
				humanize.IBytes(uint64(entry.Header.EntrySize)),
			})
		}
	}
	tw.Render()

	if cmd.Tokens {
		fmt.Println()
		cmd.renderTokens(groups)
	}
	return nil
}

// spellOutMask renders a priority mask with its level names spelled out.
func spellOutMask(mask apcb.PriorityMask) string {
	levels := strings.Split(mask.String(), "|")
	for i, level := range levels {
		levels[i] = spellOut(level)
	}
	return strings.Join(levels, ", ")
}

func (cmd *showCommand) renderTokens(groups []apcb.Group) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Group", "Kind", "Token", "Value", "Name"})
	for i := range groups {
		group := &groups[i]
		entries, err := group.Entries()
		if err != nil {
			continue
		}
		for j := range entries {
			entry := &entries[j]
			stream, err := entry.Body.TokenStream()
			if err != nil {
				continue
			}
			for _, t := range stream.Tokens() {
				tw.AppendRow(table.Row{
					fmt.Sprintf("0x%04X", group.ID()),
					stream.Kind().String(),
					fmt.Sprintf("0x%08X", t.Key),
					fmt.Sprintf("0x%X", t.Value),
					apcb.GetTokenIDString(apcb.TokenID(t.Key)),
				})
			}
		}
	}
	tw.Render()
}
