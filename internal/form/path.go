package form

import "strings"

// parsePath tokenizes "a.b[0].c" into ["a", "b", "0", "c"]. Bracket
// contents are taken verbatim, so "[x.y]" addresses a single key. An empty
// path, an empty segment or an unclosed bracket is invalid.
func parsePath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	var (
		keys []string
		cur  strings.Builder
		// expectKey is set after a dot, where a key must follow.
		expectKey = true
	)
	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			if cur.Len() > 0 {
				keys = append(keys, cur.String())
				cur.Reset()
			} else if expectKey {
				return nil, false
			}
			expectKey = true
		case '[':
			if cur.Len() > 0 {
				keys = append(keys, cur.String())
				cur.Reset()
			}
			end := strings.IndexByte(path[i+1:], ']')
			if end <= 0 {
				return nil, false
			}
			keys = append(keys, path[i+1:i+1+end])
			i += end + 1
			expectKey = false
		default:
			cur.WriteByte(ch)
			expectKey = false
		}
	}
	if cur.Len() > 0 {
		keys = append(keys, cur.String())
	} else if expectKey {
		return nil, false
	}
	return keys, true
}
