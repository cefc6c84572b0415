package domain

// Zero wipes key material or plaintext in place. Callers defer it right after
// the buffer is produced.
func Zero(b []byte) {
	clear(b)
}
