package model

import "strings"

// Chamber identifies a legislative chamber. The zero value means "unknown".
type Chamber string

const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
)

// ChamberFromCode maps an upstream chamber code ("H", "S", or a spelled-out
// name) to a Chamber. Unrecognized codes yield the zero Chamber.
func ChamberFromCode(code string) Chamber {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "h", "house":
		return ChamberHouse
	case "s", "senate":
		return ChamberSenate
	default:
		return ""
	}
}

// Valid reports whether c is house or senate
func (c Chamber) Valid() bool {
	return c == ChamberHouse || c == ChamberSenate
}

// Opposite returns the other chamber. Unknown stays unknown.
func (c Chamber) Opposite() Chamber {
	switch c {
	case ChamberHouse:
		return ChamberSenate
	case ChamberSenate:
		return ChamberHouse
	default:
		return ""
	}
}

// Code returns the single-letter upstream code for c
func (c Chamber) Code() string {
	switch c {
	case ChamberHouse:
		return "H"
	case ChamberSenate:
		return "S"
	default:
		return ""
	}
}
