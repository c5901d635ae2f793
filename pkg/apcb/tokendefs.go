// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apcb

import (
	"fmt"
	"strings"
)

// TokenKind is the value width of the tokens in a Tokens entry. It is stored
// in the entry header's EntryID field.
type TokenKind uint16

const (
	TokenKindBool  TokenKind = 0
	TokenKindByte  TokenKind = 1
	TokenKindWord  TokenKind = 2
	TokenKindDword TokenKind = 4
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindBool:
		return "Bool"
	case TokenKindByte:
		return "Byte"
	case TokenKindWord:
		return "Word"
	case TokenKindDword:
		return "Dword"
	}
	return fmt.Sprintf("TokenKind_%d", uint16(k))
}

func (k TokenKind) valid() bool {
	switch k {
	case TokenKindBool, TokenKindByte, TokenKindWord, TokenKindDword:
		return true
	}
	return false
}

// Mask is the set of value bits a token of this kind may use.
func (k TokenKind) Mask() uint32 {
	switch k {
	case TokenKindBool:
		return 0x1
	case TokenKindByte:
		return 0xFF
	case TokenKindWord:
		return 0xFFFF
	}
	return 0xFFFF_FFFF
}

// See: AgesaPkg/Addendum/Apcb/Inc/CommonV3/ApcbV3Priority.h

// PriorityLevel is one APCB token purpose level. Levels form a hierarchy: a
// token set at a higher level overrides the same token at a lower one.
type PriorityLevel uint8

const (
	PriorityLevelHardForce    PriorityLevel = 1
	PriorityLevelHigh         PriorityLevel = 2
	PriorityLevelMedium       PriorityLevel = 3
	PriorityLevelEventLogging PriorityLevel = 4
	PriorityLevelLow          PriorityLevel = 5
	PriorityLevelDefault      PriorityLevel = 6
)

func (pl PriorityLevel) String() string {
	switch pl {
	case PriorityLevelHardForce:
		return "HardForce"
	case PriorityLevelHigh:
		return "High"
	case PriorityLevelMedium:
		return "Medium"
	case PriorityLevelEventLogging:
		return "EventLogging"
	case PriorityLevelLow:
		return "Low"
	case PriorityLevelDefault:
		return "Default"
	}
	return fmt.Sprintf("PriorityLevel_%d", uint8(pl))
}

// PriorityMask is a combined set of priority levels.
type PriorityMask uint8

func (m PriorityMask) String() string {
	var s strings.Builder
	for level := PriorityLevelHardForce; level <= PriorityLevelDefault; level++ {
		flag := uint8(1 << (uint8(level) - 1))
		if uint8(m)&flag != 0 {
			if s.Len() > 0 {
				s.WriteString("|")
			}
			s.WriteString(level.String())
		}
	}
	if s.Len() == 0 {
		return "none"
	}
	return s.String()
}

// CreatePriorityMask combines priority levels into a PriorityMask.
func CreatePriorityMask(levels ...PriorityLevel) PriorityMask {
	var result uint8
	for _, l := range levels {
		result |= 1 << (uint8(l) - 1)
	}
	return PriorityMask(result)
}

// Well-known group ids and their usual signatures.
const (
	GroupIDPSP    uint16 = 0x1701
	GroupIDCCX    uint16 = 0x1702
	GroupIDDF     uint16 = 0x1703
	GroupIDMemory uint16 = 0x1704
	GroupIDGNB    uint16 = 0x1705
	GroupIDFCH    uint16 = 0x1706
	GroupIDCBS    uint16 = 0x1707
	GroupIDOEM    uint16 = 0x1708
	GroupIDToken  uint16 = 0x3000
)

// GroupIDSignature returns the conventional signature for a well-known group
// id, or false for ids with no convention.
func GroupIDSignature(groupID uint16) ([4]byte, bool) {
	switch groupID {
	case GroupIDPSP:
		return [4]byte{'P', 'S', 'P', 'G'}, true
	case GroupIDDF:
		return [4]byte{'D', 'F', 'G', ' '}, true
	case GroupIDMemory:
		return [4]byte{'M', 'E', 'M', 'G'}, true
	case GroupIDToken:
		return [4]byte{'T', 'O', 'K', 'N'}, true
	}
	return [4]byte{}, false
}

// TokenID is a unique token identifier.
type TokenID uint32

// See: AgesaPkg/Addendum/Apcb/Inc/GN/ApcbV3TokenUid.h
const (
	TokenIDPSPMeasureConfig   TokenID = 0xDD3AD029
	TokenIDPSPEnableDebugMode TokenID = 0xD1091CD0
	TokenIDPSPErrorDisplay    TokenID = 0xDC33FF21
	TokenIDPSPStopOnError     TokenID = 0xE7024A21
)

// GetTokenIDString returns the literal representation of known token ids,
// otherwise an empty string.
func GetTokenIDString(tokenID TokenID) string {
	switch tokenID {
	case TokenIDPSPMeasureConfig:
		return "APCB_TOKEN_UID_PSP_MEASURE_CONFIG"
	case TokenIDPSPEnableDebugMode:
		return "APCB_TOKEN_UID_PSP_ENABLE_DEBUG_MODE"
	case TokenIDPSPErrorDisplay:
		return "APCB_TOKEN_UID_PSP_ERROR_DISPLAY"
	case TokenIDPSPStopOnError:
		return "APCB_TOKEN_UID_PSP_STOP_ON_ERROR"
	}
	return ""
}

// tokenDecl records what is known about a token id: its kind and the first
// ABL0 version that understands it (0 when any version does).
type tokenDecl struct {
	kind    TokenKind
	minAbl0 uint32
}

var knownTokens = map[TokenID]tokenDecl{
	TokenIDPSPMeasureConfig:   {kind: TokenKindDword},
	TokenIDPSPEnableDebugMode: {kind: TokenKindBool},
	TokenIDPSPErrorDisplay:    {kind: TokenKindBool},
	TokenIDPSPStopOnError:     {kind: TokenKindBool},
}

// checkTokenVersion gates token inserts against the known-token table when
// the caller declared a firmware version. Tokens without a declaration are
// accepted to ease bring-up of new tokens.
func checkTokenVersion(kind TokenKind, tokenID uint32, abl0Version *uint32) error {
	if abl0Version == nil {
		return nil
	}
	decl, ok := knownTokens[TokenID(tokenID)]
	if !ok {
		return nil
	}
	if decl.kind != kind || decl.minAbl0 > *abl0Version {
		return &TokenVersionMismatchError{
			EntryID:     kind,
			TokenID:     tokenID,
			Abl0Version: *abl0Version,
		}
	}
	return nil
}
