// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression reads and writes the compressed containers APCB images
// travel in. Blobs cut out of a flash image are raw; blobs archived by build
// tooling usually are not.
package compression

import (
	"bytes"
)

// Codec defines a single compression scheme.
type Codec interface {
	// Name is the scheme's conventional short name, also used as a file
	// extension.
	Name() string

	// Decode and Encode obey "x == Decode(Encode(x))".
	Decode(encodedData []byte) ([]byte, error)
	Encode(decodedData []byte) ([]byte, error)
}

// Frame magics of the supported containers.
var (
	xzMagic   = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Detect returns the Codec whose frame magic starts data, or nil for raw
// data.
func Detect(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, xzMagic):
		return &XZ{}
	case bytes.HasPrefix(data, zstdMagic):
		return &Zstd{}
	case bytes.HasPrefix(data, lz4Magic):
		return &LZ4{}
	}
	return nil
}

// CodecByName returns the Codec with the given Name, or nil.
func CodecByName(name string) Codec {
	for _, c := range []Codec{&XZ{}, &Zstd{}, &LZ4{}} {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Decode returns the decompressed contents of data, sniffing the container
// by its frame magic. Raw data passes through unchanged.
func Decode(data []byte) ([]byte, error) {
	codec := Detect(data)
	if codec == nil {
		return data, nil
	}
	return codec.Decode(data)
}
