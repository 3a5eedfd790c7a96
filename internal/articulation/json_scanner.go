package articulation

// jsonObjects returns every balanced top-level {...} span in s, in order.
// Braces inside JSON strings are ignored. Scanning bytes is safe for the
// ASCII delimiters because UTF-8 never reuses them inside multi-byte runes.
func jsonObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			switch b {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case b == '"':
			inString = true
		case b == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case b == '}' && depth > 0:
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, s[start:i+1])
				start = -1
			}
		}
	}
	return out
}
