package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// compileRegexp translates Python-flavoured syntax and compiles the result.
// A positive timeout bounds every match made with the returned Regexp.
func compileRegexp(pattern string, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(translatePattern(pattern), regexp2.None)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

// translatePattern rewrites the Python-only constructs that regexp2 does
// not understand:
//
//	(?P<name>...)  named group      -> (?<name>...)
//	(?P=name)      named backref    -> \k<name>
//	\Z             end of input     -> \z
//	{,n}           0 to n repeats   -> {0,n}
//
// Escaped characters and character classes are copied unchanged.
func translatePattern(p string) string {
	var b strings.Builder
	b.Grow(len(p))

	inClass := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '\\' && i+1 < len(p):
			if !inClass && p[i+1] == 'Z' {
				b.WriteString(`\z`)
			} else {
				b.WriteByte(c)
				b.WriteByte(p[i+1])
			}
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			b.WriteByte(c)
			// A leading "]" or "^]" is a literal member, not the end.
			if i+1 < len(p) && p[i+1] == '^' {
				b.WriteByte('^')
				i++
			}
			if i+1 < len(p) && p[i+1] == ']' {
				b.WriteByte(']')
				i++
			}
		case strings.HasPrefix(p[i:], "(?P<"):
			b.WriteString("(?<")
			i += len("(?P<") - 1
		case strings.HasPrefix(p[i:], "(?P="):
			end := strings.IndexByte(p[i:], ')')
			if end < 0 {
				b.WriteString(p[i:])
				return b.String()
			}
			b.WriteString(`\k<`)
			b.WriteString(p[i+len("(?P=") : i+end])
			b.WriteByte('>')
			i += end
		case c == '{' && i+1 < len(p) && p[i+1] == ',':
			n := openLowerBound(p[i:])
			if n == 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteString("{0")
			b.WriteString(p[i+1 : i+n])
			i += n - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// openLowerBound returns the length of a "{,n}" or "{,}" quantifier at the
// start of p, or 0 when the braces are literal text.
func openLowerBound(p string) int {
	j := 2
	for j < len(p) && p[j] >= '0' && p[j] <= '9' {
		j++
	}
	if j < len(p) && p[j] == '}' {
		return j + 1
	}
	return 0
}

// groupRef is a backreference found in a replacement template.
type groupRef struct {
	num  int
	name string
}

// translateReplacement converts a Python re.sub template into regexp2
// replacement syntax and returns the group references it contains.
//
//	\1 \12 \g<1>  -> ${1} ${12} ${1}
//	\g<name>      -> ${name}
//	\n \t \\ ...  -> the escaped character
//	\0 \012 \101 -> the octal character
//	$             -> $$
//
// Unknown escapes of ASCII letters are errors; other unknown escapes keep
// their backslash.
func translateReplacement(s string) (string, []groupRef, error) {
	var (
		b    strings.Builder
		refs []groupRef
	)
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", nil, fmt.Errorf("bad escape (end of replacement)")
		}
		i++
		c = s[i]
		switch {
		case c == '0':
			j := i + 1
			for j < len(s) && j < i+3 && isOctal(s[j]) {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 8)
			b.WriteRune(rune(v))
			i = j - 1
		case isOctal(c) && i+2 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]):
			v, err := strconv.ParseUint(s[i:i+3], 8, 8)
			if err != nil {
				return "", nil, fmt.Errorf("octal escape value \\%s outside of range 0-0o377", s[i:i+3])
			}
			b.WriteRune(rune(v))
			i += 2
		case c >= '1' && c <= '9':
			j := i + 1
			if j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(s[i:j])
			fmt.Fprintf(&b, "${%d}", n)
			refs = append(refs, groupRef{num: n})
			i = j - 1
		case c == 'g':
			if i+1 >= len(s) || s[i+1] != '<' {
				return "", nil, fmt.Errorf("missing < after \\g")
			}
			end := strings.IndexByte(s[i+1:], '>')
			if end < 0 {
				return "", nil, fmt.Errorf("missing > in group reference")
			}
			name := s[i+2 : i+1+end]
			if name == "" {
				return "", nil, fmt.Errorf("missing group name")
			}
			if n, err := strconv.Atoi(name); err == nil {
				fmt.Fprintf(&b, "${%d}", n)
				refs = append(refs, groupRef{num: n})
			} else {
				fmt.Fprintf(&b, "${%s}", name)
				refs = append(refs, groupRef{num: -1, name: name})
			}
			i += 1 + end
		default:
			if esc, ok := replacementEscapes[c]; ok {
				b.WriteByte(esc)
			} else if isASCIILetter(c) {
				return "", nil, fmt.Errorf("bad escape \\%c", c)
			} else {
				b.WriteByte('\\')
				b.WriteByte(c)
			}
		}
	}
	return b.String(), refs, nil
}

var replacementEscapes = map[byte]byte{
	'\\': '\\',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'f':  '\f',
	'v':  '\v',
	'a':  '\a',
	'b':  '\b',
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// checkGroupRefs verifies every reference names a group that exists in re.
func checkGroupRefs(re *regexp2.Regexp, refs []groupRef) error {
	if len(refs) == 0 {
		return nil
	}
	nums := make(map[int]bool)
	for _, n := range re.GetGroupNumbers() {
		nums[n] = true
	}
	names := make(map[string]bool)
	for _, name := range re.GetGroupNames() {
		names[name] = true
	}
	for _, ref := range refs {
		if ref.name != "" {
			if !names[ref.name] {
				return fmt.Errorf("unknown group name %q", ref.name)
			}
			continue
		}
		if !nums[ref.num] {
			return fmt.Errorf("invalid group reference %d", ref.num)
		}
	}
	return nil
}
