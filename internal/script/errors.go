package script

// SyntaxError reports source text that failed to parse or compile. Detail
// carries the parser's diagnostic message.
type SyntaxError struct {
	Detail string
}

func (e *SyntaxError) Error() string {
	return "SyntaxError: " + e.Detail
}
