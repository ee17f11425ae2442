package runtime

import (
	"math/rand"
	"strings"
)

// StrConcat concatenates a and b into a freshly owned Str.
func StrConcat(a, b Str) Str {
	return NewStr(a.String() + b.String())
}

// StrCompare returns -1, 0, or 1 per strings.Compare, used by the
// comparison intrinsics when either operand is a Str.
func StrCompare(a, b Str) int64 {
	return int64(strings.Compare(a.String(), b.String()))
}

// Substr implements AWK's 1-indexed, clamped substr(s, m[, n]).
func Substr(s Str, m, n int64) Str {
	str := s.String()
	if m < 1 {
		m = 1
	}
	start := m - 1
	if start > int64(len(str)) {
		start = int64(len(str))
	}
	end := int64(len(str))
	if n >= 0 && start+n < end {
		end = start + n
	}
	if end < start {
		end = start
	}
	return NewStr(str[start:end])
}

// EscapeForPrintf expands the backslash escapes AWK's own lexer leaves
// unexpanded inside regex literals (only "\/" is unescaped there), used
// when a dynamic regex-like string needs escape expansion at runtime.
func EscapeForPrintf(s Str) Str {
	var sb strings.Builder
	str := s.String()
	for i := 0; i < len(str); i++ {
		if str[i] == '\\' && i+1 < len(str) {
			i++
			switch str[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(str[i])
			}
			continue
		}
		sb.WriteByte(str[i])
	}
	return NewStr(sb.String())
}

// Random returns a pseudo-random float in [0, 1), backing AWK's rand().
func Random() float64 { return rand.Float64() }

// SeedRandom backs AWK's srand(), returning the previous seed the same way
// the reference implementation does so a program can restore it.
var randSeed int64 = 1

func SeedRandom(seed int64) int64 {
	prev := randSeed
	randSeed = seed
	rand.Seed(seed)
	return prev
}
