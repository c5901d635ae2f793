// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// apcbdump prints the JSON structure of an APCB image to stdout.
//
// Synopsis:
//     apcbdump -f APCB_FILE
//
// Input files may be xz-, zstd- or lz4-compressed.
package main

import (
	"os"

	flag "github.com/spf13/pflag"

	"github.com/linuxboot/apcb/pkg/apcb"
	"github.com/linuxboot/apcb/pkg/compression"
	"github.com/linuxboot/apcb/pkg/log"
)

var (
	file     = flag.StringP("file", "f", "", "path of the APCB image")
	validate = flag.BoolP("validate", "v", false, "walk all invariants before dumping")
)

func main() {
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("reading %q: %v", *file, err)
	}
	data, err = compression.Decode(data)
	if err != nil {
		log.Fatalf("decompressing %q: %v", *file, err)
	}
	a, err := apcb.Load(data, nil)
	if err != nil {
		log.Fatalf("parsing %q: %v", *file, err)
	}
	if *validate {
		if err := a.Validate(); err != nil {
			log.Fatalf("invalid image %q: %v", *file, err)
		}
	}
	if err := a.Export(os.Stdout); err != nil {
		log.Fatalf("dumping %q: %v", *file, err)
	}
}
