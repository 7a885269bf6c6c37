package room

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	CodeLength = 6

	codeMin   = 100000
	codeRange = 900000
)

// CodeSource supplies randomness for room codes. *rand.Rand satisfies it.
type CodeSource interface {
	Intn(n int) int
}

// GenerateRoomCode draws a 6-digit code in [100000, 999999].
func GenerateRoomCode(src CodeSource) string {
	return strconv.Itoa(codeMin + src.Intn(codeRange))
}

func ValidateRoomCode(code string) error {
	if len(code) != CodeLength {
		return fmt.Errorf("%w: room code must be exactly %d digits", ErrInvalidArgument, CodeLength)
	}

	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("%w: room code must contain only digits 0-9", ErrInvalidArgument)
		}
	}

	return nil
}

func NormalizeRoomCode(code string) string {
	return strings.TrimSpace(code)
}

// lockedSource makes a *rand.Rand safe for concurrent room creation.
type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedSource() *lockedSource {
	return &lockedSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
