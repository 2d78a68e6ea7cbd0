package archive

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Namer assigns collision-free entry names within one archive.
// Names depend only on the sequence of calls, so an archive built from the
// same items in the same order always gets the same names.
type Namer struct {
	used map[string]bool
}

// NewNamer returns a Namer with no names taken.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]bool)}
}

// Name returns the entry name for an item. The sanitized original name is used
// when available; otherwise, or when that name is already taken, the evidence
// id disambiguates it.
func (n *Namer) Name(originalName, evidenceID string) string {
	base := Sanitize(originalName)

	var candidates []string
	if base != "" {
		candidates = append(candidates, base, evidenceID+"_"+base)
	} else {
		candidates = append(candidates, fmt.Sprintf("evidence_%s.bin", evidenceID))
	}
	for _, c := range candidates {
		if !n.used[c] {
			n.used[c] = true
			return c
		}
	}

	last := candidates[len(candidates)-1]
	for i := 2; ; i++ {
		c := fmt.Sprintf("%d_%s", i, last)
		if !n.used[c] {
			n.used[c] = true
			return c
		}
	}
}

// Sanitize reduces an original file name to a single NFC-normalized path
// element that is safe to extract on any platform. It returns "" when nothing
// usable remains.
func Sanitize(name string) string {
	name = norm.NFC.String(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		switch {
		case r == unicode.ReplacementChar, unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "." || name == ".." || strings.Trim(name, "_") == "" {
		return ""
	}
	return name
}
