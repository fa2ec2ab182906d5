package model

import (
	"fmt"
	"strings"
)

// Style selects the instrument family. Keep these values stable; they are used in
// CSV files, YAML configs and API payloads.
type Style string

const (
	StyleEquity Style = "equity"
	StyleFX     Style = "fx"
)

// ParseStyle accepts the canonical names plus a few common spellings.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "eq", "stock":
		return StyleEquity, nil
	case "fx", "forex", "currency":
		return StyleFX, nil
	default:
		return "", fmt.Errorf("%w: unknown style %q (want equity or fx)", ErrInvalidInstrument, s)
	}
}
