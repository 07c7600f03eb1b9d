// Package idpool generates the unique, unpredictable 64-bit identifiers
// used for Pid, ThreadId, MessageId and InterfaceRegistrationId.
//
// Each identifier kind is drawn from its own chacha20 keystream so that
// observing one stream's outputs gives no information about another, while
// the whole pool remains deterministic given its seed — the property the
// kernel's test suite relies on to seed reproducible scenarios.
package idpool

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20"

	"github.com/redshirt-os/redshirt/types"
)

// SeedSize is the length, in bytes, of the seed passed to New.
const SeedSize = 64

// Kind selects which independent stream an identifier is drawn from.
type Kind uint8

const (
	KindPid Kind = iota
	KindThreadId
	KindMessageId
	KindInterfaceRegistrationId

	numKinds
)

// Pool draws unique identifiers from independent, seeded keystreams.
type Pool struct {
	mu      sync.Mutex
	streams [numKinds]*chacha20.Cipher
}

// New creates a Pool from a 64-byte seed. The same seed always produces
// the same sequence of identifiers, which is what makes kernel scenarios
// reproducible in tests.
func New(seed [SeedSize]byte) (*Pool, error) {
	p := &Pool{}
	for k := Kind(0); k < numKinds; k++ {
		key := deriveKey(seed, k)
		// A zero nonce is safe here: each Kind gets an independently
		// derived key, so streams never overlap even though the nonce
		// does not vary.
		c, err := chacha20.NewUnauthenticatedCipher(key[:], make([]byte, chacha20.NonceSize))
		if err != nil {
			return nil, fmt.Errorf("idpool: chacha20.NewUnauthenticatedCipher: %w", err)
		}
		p.streams[k] = c
	}
	return p, nil
}

// deriveKey produces a distinct 32-byte chacha20 key per Kind from the
// shared seed, so every stream is independent even though they all trace
// back to the same 64-byte seed.
func deriveKey(seed [SeedSize]byte, k Kind) [chacha20.KeySize]byte {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte{byte(k)})
	sum := h.Sum(nil)
	var key [chacha20.KeySize]byte
	copy(key[:], sum)
	return key
}

func (p *Pool) next(k Kind) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var buf [8]byte
	p.streams[k].XORKeyStream(buf[:], buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Pid returns a fresh Pid, never types.KernelPid.
func (p *Pool) Pid() types.Pid {
	for {
		if id := types.Pid(p.next(KindPid)); id != types.KernelPid {
			return id
		}
	}
}

// ThreadId returns a fresh ThreadId.
func (p *Pool) ThreadId() types.ThreadId {
	return types.ThreadId(p.next(KindThreadId))
}

// MessageId returns a fresh MessageId, never types.NextInterfaceMessageId.
func (p *Pool) MessageId() types.MessageId {
	for {
		if id := types.MessageId(p.next(KindMessageId)); id != types.NextInterfaceMessageId {
			return id
		}
	}
}

// InterfaceRegistrationId returns a fresh InterfaceRegistrationId.
func (p *Pool) InterfaceRegistrationId() types.InterfaceRegistrationId {
	return types.InterfaceRegistrationId(p.next(KindInterfaceRegistrationId))
}
