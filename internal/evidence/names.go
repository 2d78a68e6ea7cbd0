package evidence

import (
	"strings"
)

// maxSafeNameLen keeps derived names well under common file name limits
// once suffixes such as "_export_<ms>.zip.age" are added.
const maxSafeNameLen = 120

// SafeName maps an untrusted case id onto a single file name component.
// Bytes outside [A-Za-z0-9._-] become '_' and leading dots are replaced, so the
// result can never escape its directory. When anything was rewritten a short
// digest of the raw id is appended so distinct ids never share a file.
func SafeName(id string) string {
	var b strings.Builder
	changed := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		case c == '.' && b.Len() > 0:
			b.WriteByte(c)
		default:
			b.WriteByte('_')
			changed = true
		}
	}
	name := b.String()
	if len(name) > maxSafeNameLen {
		name = name[:maxSafeNameLen]
		changed = true
	}
	if name == "" {
		changed = true
	}
	if !changed {
		return name
	}
	return name + "-" + Digest([]byte(id))[:12]
}
