package sources

// blankComments rewrites JSON-with-comments into plain JSON of identical
// length. Comment bytes and trailing commas are overwritten with spaces
// (newlines kept) so that byte offsets reported against the rewritten
// document remain valid in the original file.
func blankComments(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	const (
		stateCode = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateCode
	// Offset of the last comma seen at code level, -1 when consumed.
	lastComma := -1

	for i := 0; i < len(out); i++ {
		c := out[i]

		switch state {
		case stateCode:
			switch c {
			case '"':
				state = stateString
				lastComma = -1
			case '/':
				if i+1 < len(out) && out[i+1] == '/' {
					state = stateLineComment
					out[i] = ' '
				} else if i+1 < len(out) && out[i+1] == '*' {
					state = stateBlockComment
					out[i] = ' '
				}
			case ',':
				lastComma = i
			case ']', '}':
				// A comma directly preceding a closer (ignoring
				// whitespace and comments) is a trailing comma.
				if lastComma >= 0 {
					out[lastComma] = ' '
					lastComma = -1
				}
			default:
				if !isSpace(c) {
					lastComma = -1
				}
			}

		case stateString:
			if c == '\\' {
				i++
			} else if c == '"' {
				state = stateCode
			}

		case stateLineComment:
			if c == '\n' {
				state = stateCode
			} else {
				out[i] = ' '
			}

		case stateBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				state = stateCode
			} else if c != '\n' {
				out[i] = ' '
			}
		}
	}

	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
