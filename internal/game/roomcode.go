package game

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"quiz-room-service/internal/constants"
)

// CodeGenerator proposes room codes. The registry owns the uniqueness check.
type CodeGenerator interface {
	Next(taken func(code string) bool) string
}

// RandomCodes issues 6-digit codes made of the digits 1-9.
type RandomCodes struct {
	digit func() int
	now   func() time.Time
}

func NewRandomCodes() *RandomCodes {
	return &RandomCodes{
		digit: func() int { return rand.IntN(9) + 1 },
		now:   time.Now,
	}
}

func (g *RandomCodes) Next(taken func(string) bool) string {
	var code string
	for attempt := 0; attempt < constants.RoomCodeMaxAttempts; attempt++ {
		code = g.candidate()
		if !taken(code) {
			return code
		}
	}

	// Still colliding after every attempt: disambiguate with a timestamp fragment.
	stamp := strconv.FormatInt(g.now().UnixMilli(), 10)
	code += stamp[len(stamp)-constants.RoomCodeSuffixLen:]
	base := code
	for n := 1; taken(code); n++ {
		code = fmt.Sprintf("%s%d", base, n)
	}
	return code
}

func (g *RandomCodes) candidate() string {
	var b strings.Builder
	for range constants.RoomCodeLength {
		b.WriteByte(byte('0' + g.digit()))
	}
	return b.String()
}

// SequentialCodes issues increasing numeric codes starting at 100000.
type SequentialCodes struct {
	next int
}

func NewSequentialCodes() *SequentialCodes {
	return &SequentialCodes{next: constants.SequentialCodeStart}
}

func (g *SequentialCodes) Next(taken func(string) bool) string {
	for {
		code := strconv.Itoa(g.next)
		g.next++
		if !taken(code) {
			return code
		}
	}
}

// NewCodeGenerator picks a generator by mode name, defaulting to random.
func NewCodeGenerator(mode string) CodeGenerator {
	if mode == constants.RoomCodeModeSequential {
		return NewSequentialCodes()
	}
	return NewRandomCodes()
}
