// Package kfmt provides formatted output for kernel code that may run before
// the Go allocator is available: an allocation-free Printf, a ring buffer that
// captures output until a real sink is attached and leveled module loggers.
package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	digits = "0123456789abcdef"

	// numFmtBuf holds the formatted representation of a number; digits
	// are written right to left starting at its end.
	numFmtBuf [maxBufSize + 1]byte

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer is a ring buffer that stores Printf output before an
	// output sink is attached.
	earlyPrintBuffer ringBuffer

	// outputSink is a io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the active output sink or nil if output is still being
// captured by the early ring buffer.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf provides a minimal Printf implementation that can be safely used
// before the Go runtime has been properly initialized. This implementation
// does not allocate any memory.
//
// The following subset of the fmt.Printf verbs is supported:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%o base 8
//	%d base 10
//	%x base 16, with lower-case letters for a-f
//	%t "true" or "false"
//	%% a literal percent sign
//
// A decimal width may precede the verb. Strings and base-10 integers are
// left-padded with spaces; base-8 and base-16 integers are left-padded with
// zeroes.
//
// Only built-in string, bool and integer types are recognized. Named types
// (e.g. mm.Frame) must be converted to their underlying type by the caller as
// checking for io.Stringer would require the Go itables to be initialized.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer. A nil writer sends the output to the early ring
// buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextArgIndex int
		fmtLen       = len(format)
	)

	for index := 0; index < fmtLen; index++ {
		if format[index] != '%' {
			// passing format[a:b] to doWrite triggers a memory
			// allocation so we need to do this one byte at a time.
			writeByte(w, format[index])
			continue
		}

		// Parse optional width followed by the verb
		padLen := 0
		for index++; index < fmtLen && format[index] >= '0' && format[index] <= '9'; index++ {
			padLen = padLen*10 + int(format[index]-'0')
		}

		if index == fmtLen {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[index]
		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'x', 'o', 's', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if nextArgIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		arg := args[nextArgIndex]
		nextArgIndex++

		switch verb {
		case 'o':
			fmtInt(w, arg, 8, padLen)
		case 'd':
			fmtInt(w, arg, 10, padLen)
		case 'x':
			fmtInt(w, arg, 16, padLen)
		case 's':
			fmtString(w, arg, padLen)
		case 't':
			fmtBool(w, arg)
		}
	}

	for ; nextArgIndex < len(args); nextArgIndex++ {
		doWrite(w, errExtraArg)
	}
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

// fmtString prints a formatted version of string or []byte value v, applying
// the padding specified by padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		for i := 0; i < len(castedVal); i++ {
			writeByte(w, castedVal[i])
		}
	case []byte:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by padLen. Zero padding (base 8 and 16) is emitted
// after any sign; space padding (base 10) is emitted before it and the sign
// counts towards the width.
func fmtInt(w io.Writer, v interface{}, base uint64, padLen int) {
	var (
		uval uint64
		neg  bool
	)

	switch t := v.(type) {
	case uint8:
		uval = uint64(t)
	case uint16:
		uval = uint64(t)
	case uint32:
		uval = uint64(t)
	case uint64:
		uval = t
	case uint:
		uval = uint64(t)
	case uintptr:
		uval = uint64(t)
	case int8:
		uval, neg = absInt(int64(t))
	case int16:
		uval, neg = absInt(int64(t))
	case int32:
		uval, neg = absInt(int64(t))
	case int64:
		uval, neg = absInt(t)
	case int:
		uval, neg = absInt(int64(t))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}

	end := len(numFmtBuf)
	start := end
	for {
		start--
		numFmtBuf[start] = digits[uval%base]
		uval /= base
		if uval == 0 {
			break
		}
	}

	if base == 10 {
		if neg {
			start--
			numFmtBuf[start] = '-'
		}
		for end-start < padLen {
			start--
			numFmtBuf[start] = ' '
		}
	} else {
		for end-start < padLen {
			start--
			numFmtBuf[start] = '0'
		}
		if neg {
			start--
			numFmtBuf[start] = '-'
		}
	}

	doWrite(w, numFmtBuf[start:end])
}

// absInt returns the magnitude of v and whether v is negative.
func absInt(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

// writeByte emits a single byte through the shared singleByte buffer.
func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

// doWrite is a proxy that uses the runtime.noescape hack to hide p from the
// compiler's escape analysis. Without it the compiler flags p as escaping
// (the target io.Writer is unknown at compile time) and every call to Printf
// would trigger a memory allocation.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
