package evaluator

import "fmt"

// quoteByte formats c for error reasons. Printable ASCII is quoted; any
// other byte, including parts of multi-byte UTF-8 sequences, is shown in hex.
func quoteByte(c byte) string {
	if c >= 0x20 && c < 0x7f {
		return fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("%#x", c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func digitValue(c byte) int {
	return int(c - '0')
}

func isOperator(c byte) bool {
	switch c {
	case '+', '-', '*', '/':
		return true
	}
	return false
}

func isOpening(c byte) bool {
	switch c {
	case '(', '{', '[':
		return true
	}
	return false
}

func isClosing(c byte) bool {
	switch c {
	case ')', '}', ']':
		return true
	}
	return false
}

// closerFor returns the closing counterpart of an opening bracket, or 0.
func closerFor(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '{':
		return '}'
	case '[':
		return ']'
	}
	return 0
}

// openerFor returns the opening counterpart of a closing bracket, or 0.
func openerFor(c byte) byte {
	switch c {
	case ')':
		return '('
	case '}':
		return '{'
	case ']':
		return '['
	}
	return 0
}
