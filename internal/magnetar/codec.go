package magnetar

import (
	"fmt"
	"strings"
)

// Valid reports whether c is one of the catalog codes
func (c CommandCode) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	_, ok := knownCodes[c]
	return ok
}

// String implements fmt.Stringer
func (c CommandCode) String() string {
	return string(c)
}

// ParseCode converts user input such as "pon" into a known CommandCode
func ParseCode(s string) (CommandCode, error) {
	code := CommandCode(strings.ToUpper(strings.TrimSpace(s)))
	if !code.Valid() {
		return "", &InvalidCodeError{Index: -1, Code: s}
	}
	return code, nil
}

// Encode frames a command code for the wire: "#" + code + "\r\n"
func Encode(code CommandCode) []byte {
	frame := make([]byte, 0, len(FramePrefix)+len(code)+len(FrameTerminator))
	frame = append(frame, FramePrefix...)
	frame = append(frame, code...)
	frame = append(frame, FrameTerminator...)
	return frame
}

// IsAck reports whether a response line is exactly the acknowledgement literal
func IsAck(line string) bool {
	return line == Ack
}

// CountAcks returns how many response lines are acknowledgements
func CountAcks(lines []string) int {
	n := 0
	for _, line := range lines {
		if IsAck(line) {
			n++
		}
	}
	return n
}

// describeLine renders a response line for logs
func describeLine(line string) string {
	if line == "" {
		return "<timeout>"
	}
	return fmt.Sprintf("%q", line)
}
