// Package compiler loads REPP rule files into an ir.RuleSet.
//
// A rule file is line oriented. The first character of each line selects the
// declaration: ";" comment, "!" rule, "<" include, ":" tokenizer, "@" info,
// "#" iterative group definition and ">" group call or activation group.
package compiler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/roach88/repp/internal/ir"
)

// Result is the output of a successful load.
type Result struct {
	RuleSet  *ir.RuleSet
	Warnings []Warning
}

// Option configures the loader.
type Option func(*loader)

// WithMatchTimeout bounds every regex match made by the compiled rules and
// tokenizer. Zero (the default) means no timeout.
func WithMatchTimeout(d time.Duration) Option {
	return func(l *loader) {
		l.matchTimeout = d
	}
}

// WithReadFile replaces os.ReadFile for rule and include files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(l *loader) {
		l.readFile = fn
	}
}

// Compile loads the rule file at path and every file it includes.
//
// Include directives are resolved against the directory of path. The
// returned rule set is fresh; nothing is shared with earlier loads.
func Compile(path string, opts ...Option) (*Result, error) {
	l := newLoader(filepath.Dir(path), opts)
	if err := l.loadFile(path, ir.Pos{}); err != nil {
		return nil, err
	}
	return l.finish(path)
}

// CompileSource loads rules from an in-memory source. name labels
// diagnostics; includes are resolved against baseDir.
func CompileSource(name, src, baseDir string, opts ...Option) (*Result, error) {
	l := newLoader(baseDir, opts)
	l.rs.Files = append(l.rs.Files, name)
	l.loaded[l.key(name)] = true
	l.stack = append(l.stack, l.key(name))
	if err := l.parse(name, src); err != nil {
		return nil, err
	}
	return l.finish(name)
}

// loader holds the state of a single load. It is discarded afterwards.
type loader struct {
	rs           *ir.RuleSet
	baseDir      string
	matchTimeout time.Duration
	readFile     func(string) ([]byte, error)

	// Include arena: stack holds the files currently being parsed,
	// loaded every file seen so far.
	stack  []string
	loaded map[string]bool

	target *ir.Group

	// Iterative group currently being defined.
	open       *ir.IterativeGroup
	openDepth  int
	openParent *ir.Group

	defined map[string]bool
	calls   map[string]ir.Pos

	tokenizerPos ir.Pos
	infoPos      ir.Pos
}

func newLoader(baseDir string, opts []Option) *loader {
	rs := ir.NewRuleSet()
	l := &loader{
		rs:       rs,
		baseDir:  baseDir,
		readFile: os.ReadFile,
		loaded:   make(map[string]bool),
		target:   rs.Root,
		defined:  make(map[string]bool),
		calls:    make(map[string]ir.Pos),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// key identifies a file for the include arena.
func (l *loader) key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// loadFile reads and parses path. from is the include directive that
// referenced it, or the zero Pos for the top-level file.
func (l *loader) loadFile(path string, from ir.Pos) error {
	key := l.key(path)
	if slices.Contains(l.stack, key) {
		return errorf(ErrCodeIncludeCycle, from.File, from.Line,
			"include cycle: %s is already being loaded", path)
	}

	data, err := l.readFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if from.IsValid() {
				return errorf(ErrCodeFileNotFound, from.File, from.Line,
					"included file not found: %s", path)
			}
			return errorf(ErrCodeFileNotFound, path, 0, "file not found")
		}
		ce := errorf(ErrCodeGeneric, path, 0, "cannot read file: %v", err)
		ce.Err = err
		return ce
	}

	if !l.loaded[key] {
		l.loaded[key] = true
		l.rs.Files = append(l.rs.Files, path)
	}

	l.stack = append(l.stack, key)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	return l.parse(path, string(data))
}

func (l *loader) parse(file, src string) error {
	openBefore := l.open

	for i, line := range strings.Split(src, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if err := l.declaration(ir.Pos{File: file, Line: i + 1}, line); err != nil {
			return err
		}
	}

	if l.open != nil && l.open != openBefore {
		return errorf(ErrCodeUnterminatedGroup, l.open.Pos.File, l.open.Pos.Line,
			"iterative group #%s is never closed", l.open.ID)
	}
	return nil
}

func (l *loader) declaration(pos ir.Pos, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}

	operand := line[1:]
	switch line[0] {
	case ';':
		return nil
	case '!':
		return l.rule(pos, operand)
	case '<':
		return l.include(pos, operand)
	case ':':
		return l.tokenizer(pos, operand)
	case '@':
		return l.info(pos, operand)
	case '#':
		return l.groupMarker(pos, strings.TrimSpace(operand))
	case '>':
		return l.groupCall(pos, strings.TrimSpace(operand))
	default:
		return errorf(ErrCodeMalformedLine, pos.File, pos.Line,
			"invalid declaration %q: lines must start with one of ;:!@<>#", line)
	}
}

func (l *loader) rule(pos ir.Pos, operand string) error {
	tab := strings.IndexByte(operand, '\t')
	if tab < 0 {
		return errorf(ErrCodeMalformedRule, pos.File, pos.Line,
			"rule must be a pattern and a replacement separated by tabs")
	}
	pattern := operand[:tab]
	replacement := strings.TrimLeft(operand[tab:], "\t")
	if pattern == "" {
		return errorf(ErrCodeMalformedRule, pos.File, pos.Line, "rule has an empty pattern")
	}
	if strings.Contains(replacement, "\t") {
		return errorf(ErrCodeMalformedRule, pos.File, pos.Line,
			"rule has more than two tab-separated fields")
	}

	re, err := compileRegexp(pattern, l.matchTimeout)
	if err != nil {
		ce := errorf(ErrCodeInvalidRegex, pos.File, pos.Line, "invalid pattern %q: %v", pattern, err)
		ce.Err = err
		return ce
	}

	template, refs, err := translateReplacement(replacement)
	if err == nil {
		err = checkGroupRefs(re, refs)
	}
	if err != nil {
		ce := errorf(ErrCodeMalformedRule, pos.File, pos.Line, "invalid replacement %q: %v", replacement, err)
		ce.Err = err
		return ce
	}

	l.target.Append(&ir.Rule{
		Pattern:     pattern,
		Replacement: replacement,
		Template:    template,
		Regexp:      re,
		Pos:         pos,
	})
	return nil
}

func (l *loader) include(pos ir.Pos, operand string) error {
	name := strings.TrimSpace(operand)
	if name == "" {
		return errorf(ErrCodeMalformedLine, pos.File, pos.Line, "include without a file name")
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, name)
	}
	return l.loadFile(path, pos)
}

func (l *loader) tokenizer(pos ir.Pos, pattern string) error {
	if l.tokenizerPos.IsValid() {
		return errorf(ErrCodeDuplicateTokenizer, pos.File, pos.Line,
			"only one tokenization pattern may be declared (first at %s)", l.tokenizerPos)
	}
	re, err := compileRegexp(pattern, l.matchTimeout)
	if err != nil {
		ce := errorf(ErrCodeInvalidRegex, pos.File, pos.Line, "invalid tokenization pattern %q: %v", pattern, err)
		ce.Err = err
		return ce
	}
	l.tokenizerPos = pos
	l.rs.Tokenizer = pattern
	l.rs.TokenizerRegexp = re
	return nil
}

func (l *loader) info(pos ir.Pos, operand string) error {
	if l.infoPos.IsValid() {
		return errorf(ErrCodeDuplicateInfo, pos.File, pos.Line,
			"only one info declaration may be declared (first at %s)", l.infoPos)
	}
	l.infoPos = pos
	l.rs.Info = strings.TrimSpace(operand)
	return nil
}

// groupMarker handles "#n" (open) and "#" (close).
func (l *loader) groupMarker(pos ir.Pos, id string) error {
	if id == "" {
		if l.open == nil {
			return errorf(ErrCodeInvalidGroup, pos.File, pos.Line, "group end without an open iterative group")
		}
		if l.openDepth != len(l.stack) {
			return errorf(ErrCodeInvalidGroup, pos.File, pos.Line,
				"iterative group #%s must be closed in %s", l.open.ID, l.open.Pos.File)
		}
		l.target = l.openParent
		l.open = nil
		l.openParent = nil
		return nil
	}

	if !isDigits(id) {
		return errorf(ErrCodeInvalidGroup, pos.File, pos.Line, "invalid iterative group id %q", id)
	}
	if l.open != nil {
		return errorf(ErrCodeInvalidGroup, pos.File, pos.Line,
			"iterative group #%s opened inside #%s", id, l.open.ID)
	}
	if l.defined[id] {
		return errorf(ErrCodeInvalidGroup, pos.File, pos.Line,
			"iterative group #%s already defined at %s", id, l.group(id).Pos)
	}

	g := l.group(id)
	g.Pos = pos
	l.defined[id] = true
	l.open = g
	l.openDepth = len(l.stack)
	l.openParent = l.target
	l.target = &g.Group
	return nil
}

// groupCall handles ">n" (call iterative group n) and ">name" (declare an
// activation group).
func (l *loader) groupCall(pos ir.Pos, operand string) error {
	if operand == "" {
		return errorf(ErrCodeMalformedLine, pos.File, pos.Line, "group reference without a name")
	}
	if !isDigits(operand) {
		if _, ok := l.rs.Active[operand]; !ok {
			l.rs.Active[operand] = false
		}
		return nil
	}
	if _, seen := l.calls[operand]; !seen {
		l.calls[operand] = pos
	}
	l.target.Append(l.group(operand))
	return nil
}

// group returns the iterative group with the given id, creating it on
// first mention so calls may precede the definition.
func (l *loader) group(id string) *ir.IterativeGroup {
	g, ok := l.rs.Groups[id]
	if !ok {
		g = &ir.IterativeGroup{Group: ir.Group{Name: "#" + id}, ID: id}
		l.rs.Groups[id] = g
	}
	return g
}

func (l *loader) finish(top string) (*Result, error) {
	ids := make([]string, 0, len(l.calls))
	for id := range l.calls {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if !l.defined[id] {
			pos := l.calls[id]
			return nil, errorf(ErrCodeUnknownGroup, pos.File, pos.Line,
				"iterative group #%s is never defined", id)
		}
	}

	if err := checkRecursion(l.rs.Groups); err != nil {
		return nil, err
	}

	res := &Result{RuleSet: l.rs}
	if !l.rs.HasTokenizer() {
		res.Warnings = append(res.Warnings, Warning{
			Code:    WarnCodeNoTokenizer,
			File:    top,
			Message: "no tokenization pattern declared; tokenize returns its input unsplit",
		})
	}
	return res, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
