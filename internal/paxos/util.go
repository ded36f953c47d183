package paxos

import (
	"crypto/rand"
	"encoding/binary"
)

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// randomUint32 returns a crypto/rand-backed random number, used to pick a
// random peer when forwarding a chaos trigger.
func randomUint32() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(buf[:])
}
