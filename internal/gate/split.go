package gate

import "strings"

// SplitCommand breaks a composed shell command into independent candidate
// commands, splitting on unquoted |, ||, &&, ;, & and newlines. A composite
// of N piped stages yields N candidates so that each stage is checked
// against policy on its own: intent can be smuggled through a later stage.
//
// The split is quote-aware (single, double, backslash escapes) and does not
// split inside $(...) or backticks. It is deliberately not a full shell
// parser; candidates keep their raw text so the policy's semantic patterns
// still see everything.
func SplitCommand(text string) []string {
	var (
		candidates []string
		current    strings.Builder
		inSingle   bool
		inDouble   bool
		subDepth   int
		inBacktick bool
	)

	flush := func() {
		if c := strings.TrimSpace(current.String()); c != "" {
			candidates = append(candidates, c)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		// Backslash escapes the next character outside single quotes.
		if ch == '\\' && !inSingle && i+1 < len(runes) {
			current.WriteRune(ch)
			current.WriteRune(runes[i+1])
			i++
			continue
		}

		switch {
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '`' && !inSingle:
			inBacktick = !inBacktick
		case ch == '$' && !inSingle && i+1 < len(runes) && runes[i+1] == '(':
			subDepth++
			current.WriteRune(ch)
			current.WriteRune('(')
			i++
			continue
		case ch == ')' && subDepth > 0 && !inSingle:
			// Substitution depth is tracked independently of double-quote
			// state: $(...) opens and closes inside double quotes too.
			subDepth--
		}

		quoted := inSingle || inDouble || inBacktick || subDepth > 0
		if !quoted {
			switch ch {
			case '\n', ';':
				flush()
				continue
			case '|':
				flush()
				if i+1 < len(runes) && runes[i+1] == '|' {
					i++
				}
				continue
			case '&':
				// 2>&1, >&2, <&0 and &>out are redirections, not separators;
				// severing a command there would hide co-occurring tokens
				// from multi-token deny predicates.
				if i > 0 && (runes[i-1] == '>' || runes[i-1] == '<') {
					break
				}
				if i+1 < len(runes) && runes[i+1] == '>' {
					break
				}
				flush()
				if i+1 < len(runes) && runes[i+1] == '&' {
					i++
				}
				continue
			}
		}

		current.WriteRune(ch)
	}
	flush()

	return candidates
}
