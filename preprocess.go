package imm

import (
	"errors"
	"fmt"
	"strings"
)

const includeDirective = "#include"

// maxIncludeExpansions bounds include expansion so that a file including
// itself fails instead of looping.
const maxIncludeExpansions = 64

// PreprocessShader replaces every `#include "name"` directive in src with
// includes[name]. Included text is scanned again, so includes may nest.
func PreprocessShader(src string, includes map[string]string) (string, error) {
	var expansions int
	pos := 0
	for {
		i := strings.Index(src[pos:], includeDirective)
		if i < 0 {
			return src, nil
		}
		start := pos + i
		rest := strings.TrimLeft(src[start+len(includeDirective):], " \t")
		if !strings.HasPrefix(rest, `"`) {
			return "", fmt.Errorf("imm: malformed #include at byte %d", start)
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return "", errors.New("imm: unterminated #include file name")
		}
		name := rest[1 : 1+end]
		content, ok := includes[name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrIncludeNotFound, name)
		}
		if expansions++; expansions > maxIncludeExpansions {
			return "", fmt.Errorf("imm: too many #include expansions, last %q", name)
		}
		directiveEnd := len(src) - len(rest) + 1 + end + 1
		src = src[:start] + content + src[directiveEnd:]
		pos = start
	}
}
