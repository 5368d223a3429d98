package position

import (
	"github.com/apparentlymart/go-textseg/v13/textseg"
)

// GraphemeColumn returns the number of grapheme clusters in s, which is the
// zero-based column of the position right after s on its line.
func GraphemeColumn(s string) int {
	if isASCII(s) {
		return len(s)
	}
	n, err := textseg.TokenCount([]byte(s), textseg.ScanGraphemeClusters)
	if err != nil {
		return len(s)
	}
	return n
}

// GraphemeTail returns the number of grapheme clusters in s and the byte
// offset at which the last of them starts. That offset is a cluster boundary
// of any text s is a prefix of; the last cluster itself may still grow.
func GraphemeTail(s string) (count, last int) {
	if s == "" {
		return 0, 0
	}
	if isASCII(s) {
		return len(s), len(s) - 1
	}
	b := []byte(s)
	offset := 0
	for offset < len(b) {
		adv, _, err := textseg.ScanGraphemeClusters(b[offset:], true)
		if err != nil || adv == 0 {
			break
		}
		count++
		last = offset
		offset += adv
	}
	return count, last
}

// ByteOffsetOfColumn returns the byte offset within line of the zero-based
// grapheme column. Columns past the end resolve to len(line).
func ByteOffsetOfColumn(line string, column int) int {
	if column <= 0 {
		return 0
	}
	if isASCII(line) {
		return min(column, len(line))
	}
	b := []byte(line)
	offset := 0
	for i := 0; i < column && offset < len(b); i++ {
		adv, _, err := textseg.ScanGraphemeClusters(b[offset:], true)
		if err != nil || adv == 0 {
			break
		}
		offset += adv
	}
	return offset
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
