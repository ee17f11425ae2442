package runtime

import (
	"strings"
	"unsafe"

	"jitawk/src/writer"
)

// Tag is the type-tag encoding the printf wrapper stub arrays carry (see
// printfTag in src/ir/llvm/printf.go): Int=0, Float=1, Str=2. It is not
// src/ir.Ty's own ordinal, which numbers Null first; kept as a distinct,
// small enum here so this package doesn't need to import src/ir just for
// three constants.
type Tag uint32

const (
	TagInt Tag = iota
	TagFloat
	TagStr
)

// formatOne renders one tagged value the way AWK's print/printf format its
// arguments by default (OFMT-style for floats, plain decimal for ints, the
// raw string otherwise).
func formatOne(tag Tag, word uint64) string {
	switch tag {
	case TagInt:
		return IntToStr(int64(word))
	case TagFloat:
		return FloatToStr(floatFromBits(word))
	case TagStr:
		return strFromWord(word)
	default:
		return ""
	}
}

// PrintStdout formats and writes one print statement's arguments to stdout
// through reg's default registry entry, space-separated with a trailing
// newline, matching AWK's default OFS/ORS.
func PrintStdout(reg *writer.Registry, tags []Tag, words []uint64) {
	fh := reg.Get("-", false)
	_ = fh.Write([]byte(joinFields(tags, words)))
}

// PrintFile is PrintStdout's counterpart for a named output file/pipe
// target, opened in append mode the first time a program writes to it so
// repeated `print > "f"` statements don't each truncate the file.
func PrintFile(reg *writer.Registry, path string, tags []Tag, words []uint64) {
	fh := reg.Get(path, true)
	_ = fh.Write([]byte(joinFields(tags, words)))
}

// Sprintf renders the same tagged-argument vector to a Str instead of
// writing it anywhere, backing AWK's sprintf() builtin.
func Sprintf(tags []Tag, words []uint64) Str {
	return NewStr(joinFields(tags, words))
}

func joinFields(tags []Tag, words []uint64) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = formatOne(t, words[i])
	}
	return strings.Join(parts, " ") + "\n"
}

// floatFromBits and strFromWord undo the bit-pattern/pointer encoding the
// code generator's wrapper stub uses to pack a mixed-type argument list
// into one fixed-width word array; see src/ir/llvm/printf.go. A float64's
// bit pattern round-trips exactly through a uint64; a Str argument is
// packed as the address of its Str value.
func floatFromBits(bits uint64) float64 {
	return *(*float64)(unsafe.Pointer(&bits))
}

func strFromWord(word uint64) string {
	s := (*Str)(unsafe.Pointer(uintptr(word)))
	if s == nil {
		return ""
	}
	return s.String()
}
