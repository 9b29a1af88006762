package remotefs

// PackNames copies names into buf as NUL-terminated strings, in order, until
// the next name no longer fits.
//
// Returns the number of bytes written and the number of names packed. A
// return of (0, 0) with names non-empty means the first name does not fit;
// callers translate that into ERANGE.
func PackNames(buf []byte, names []string) (written, packed int) {
	for _, name := range names {
		need := len(name) + 1
		if written+need > len(buf) {
			break
		}
		copy(buf[written:], name)
		buf[written+len(name)] = 0
		written += need
		packed++
	}
	return written, packed
}
