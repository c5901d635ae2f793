// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

// readHeaderForStamping parses and bounds-checks the V2 header of a raw
// buffer for the static stamping helpers.
func readHeaderForStamping(buf []byte) (HeaderV2, error) {
	var hdr HeaderV2
	if err := readAt(buf, 0, &hdr); err != nil {
		return HeaderV2{}, fsErr(InconsistentHeader, "V2_HEADER")
	}
	if hdr.Signature != headerV2Signature {
		return HeaderV2{}, fsErr(InconsistentHeader, "V2_HEADER::signature")
	}
	if int(hdr.APCBSize) < headerV2Size || int(hdr.APCBSize) > len(buf) {
		return HeaderV2{}, fsErr(InconsistentHeader, "V2_HEADER::apcb_size")
	}
	return hdr, nil
}

// UpdateChecksum recomputes ChecksumByte so the unsigned byte sum over
// [0, APCBSize) is zero mod 256. Call it once after any sequence of
// mutations, before handing the buffer to firmware.
func UpdateChecksum(buf []byte) error {
	hdr, err := readHeaderForStamping(buf)
	if err != nil {
		return err
	}
	hdr.ChecksumByte = 0
	if err := writeAt(buf, 0, &hdr); err != nil {
		return err
	}
	hdr.ChecksumByte = -sumBytes(buf[:hdr.APCBSize])
	return writeAt(buf, 0, &hdr)
}

// Save stamps the buffer for persisting: it bumps UniqueAPCBInstance and
// recomputes the checksum.
func Save(buf []byte) error {
	hdr, err := readHeaderForStamping(buf)
	if err != nil {
		return err
	}
	hdr.UniqueAPCBInstance++
	if err := writeAt(buf, 0, &hdr); err != nil {
		return err
	}
	return UpdateChecksum(buf)
}
