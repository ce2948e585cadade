package contracts

import (
	"fmt"
	"strings"
)

// Identifier widths of the billing agreement number (abrnr)
const (
	EkpnrWidth = 10
	VerfaWidth = 2
	TeilnWidth = 2
	AbrnrWidth = EkpnrWidth + VerfaWidth + TeilnWidth
)

// Ekpnr is the zero-padded 10 digit customer account number.
// Never convert it to a number, leading zeros are significant.
type Ekpnr string

// Verfa is the 2 character procedure code ("01" paket, "62" warenpost)
type Verfa string

// Teiln is the 2 character participation code
type Teiln string

// Abrnr is the billing agreement number ekpnr ++ verfa ++ teiln
type Abrnr string

// Kalknr is the calculation number (pricing unit)
type Kalknr string

// AccountKey is the composite account-agreement key
// ⭐ SSOT: abrnr == ekpnr + verfa + teiln
type AccountKey struct {
	Ekpnr Ekpnr
	Verfa Verfa
	Teiln Teiln
}

// Abrnr concatenates the key parts
func (k AccountKey) Abrnr() Abrnr {
	return Abrnr(string(k.Ekpnr) + string(k.Verfa) + string(k.Teiln))
}

// Validate checks the fixed widths of every part
func (k AccountKey) Validate() error {
	if len(k.Ekpnr) != EkpnrWidth || len(k.Verfa) != VerfaWidth || len(k.Teiln) != TeilnWidth {
		return fmt.Errorf("key %q/%q/%q: expected widths %d/%d/%d",
			k.Ekpnr, k.Verfa, k.Teiln, EkpnrWidth, VerfaWidth, TeilnWidth)
	}
	return nil
}

// ParseAbrnr splits a 14 character billing agreement number
func ParseAbrnr(s string) (AccountKey, error) {
	if len(s) != AbrnrWidth {
		return AccountKey{}, fmt.Errorf("abrnr %q: expected %d characters, got %d", s, AbrnrWidth, len(s))
	}
	return AccountKey{
		Ekpnr: Ekpnr(s[:EkpnrWidth]),
		Verfa: Verfa(s[EkpnrWidth : EkpnrWidth+VerfaWidth]),
		Teiln: Teiln(s[EkpnrWidth+VerfaWidth:]),
	}, nil
}

// Ekpnr returns the account part, or the whole value when too short
func (a Abrnr) Ekpnr() Ekpnr {
	if len(a) < EkpnrWidth {
		return Ekpnr(a)
	}
	return Ekpnr(a[:EkpnrWidth])
}

// Verfa returns characters 10..12, empty when too short
func (a Abrnr) Verfa() Verfa {
	if len(a) < EkpnrWidth+VerfaWidth {
		return ""
	}
	return Verfa(a[EkpnrWidth : EkpnrWidth+VerfaWidth])
}

// NormalizeEkpnr left-pads an account number with zeros to 10 characters.
// Blank and all-zero values become empty.
func NormalizeEkpnr(raw string) Ekpnr {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	// warehouse drivers sometimes hand out "5000000001.0"
	if i := strings.Index(s, "."); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if len(s) < EkpnrWidth {
		s = strings.Repeat("0", EkpnrWidth-len(s)) + s
	}
	if strings.Trim(s, "0") == "" {
		return ""
	}
	return Ekpnr(s)
}
