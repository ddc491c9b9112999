package game

import "crypto/rand"

// newRoomCode returns a six-character join code. The alphabet drops easily
// confused glyphs (0/O, 1/I) since codes get read out loud across a table.
func newRoomCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}
