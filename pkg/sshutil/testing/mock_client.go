package testing

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shellkey/shellkey/internal/errors"
	"github.com/shellkey/shellkey/pkg/sshutil"
)

// DefaultHome is the remote home directory a new MockClient starts in.
const DefaultHome = "/home/user"

var _ sshutil.SSHClient = (*MockClient)(nil)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Delay holds the response back, or until the caller's context ends.
	Delay time.Duration
}

// MockClient simulates an SSH connection for testing.
// It parses the shell commands shellkey sends and runs them against a virtual filesystem.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	home     string
	fs       *MockFS
	closed   bool
	patterns []string
	commands map[string]CommandResponse // pattern -> response
	log      []string
}

// NewMockClient creates a mock SSH client whose filesystem holds only an empty home directory.
func NewMockClient(host string) *MockClient {
	m := &MockClient{
		host:     host,
		address:  host + ":22",
		home:     DefaultHome,
		fs:       NewMockFS(),
		commands: make(map[string]CommandResponse),
	}
	_ = m.fs.MkdirAll(m.home)
	return m
}

// Exec runs a command against the virtual filesystem.
// Canned responses win over simulation: exact matches first, then regex patterns in the order they were set.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, stderrors.New("connection closed")
	}
	m.log = append(m.log, cmd)
	resp, canned := m.lookupLocked(cmd)
	m.mu.Unlock()

	if canned && resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return nil, nil, -1, timeoutError(ctx, cmd)
		}
	}
	if ctx.Err() != nil {
		return nil, nil, -1, timeoutError(ctx, cmd)
	}
	if canned {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.run(cmd)
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// Home returns the directory remote commands start in.
func (m *MockClient) Home() string {
	return m.home
}

// SetHome moves the remote home directory, creating it if needed.
func (m *MockClient) SetHome(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.home = path.Clean(dir)
	_ = m.fs.MkdirAll(m.home)
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[pattern]; !exists {
		m.patterns = append(m.patterns, pattern)
	}
	m.commands[pattern] = resp
}

// Commands returns every command passed to Exec, in order.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}

// GetFS returns the mock filesystem for direct manipulation in tests.
func (m *MockClient) GetFS() *MockFS {
	return m.fs
}

func (m *MockClient) lookupLocked(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for _, pattern := range m.patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return m.commands[pattern], true
		}
	}
	return CommandResponse{}, false
}

func timeoutError(ctx context.Context, cmd string) error {
	return errors.WrapWithCode(ctx.Err(), errors.ErrRemote,
		fmt.Sprintf("Remote command didn't finish in time: %s", cmd), "")
}

// run executes a `&&` chain. Every chain starts in the home directory,
// like a fresh `sh -c` would.
func (m *MockClient) run(cmd string) ([]byte, []byte, int, error) {
	tokens, err := tokenize(cmd)
	if err != nil {
		return nil, []byte("sh: 1: Syntax error: " + err.Error() + "\n"), 2, nil
	}

	cwd := m.home
	var out bytes.Buffer
	for _, segment := range splitChain(tokens) {
		stdout, stderr, code := m.runSegment(segment, &cwd)
		out.Write(stdout)
		if code != 0 {
			return out.Bytes(), stderr, code, nil
		}
	}
	return out.Bytes(), nil, 0, nil
}

func (m *MockClient) runSegment(args []token, cwd *string) ([]byte, []byte, int) {
	var redirect string
	for i, t := range args {
		if t.op && t.text == ">>" {
			if i+1 >= len(args) || args[i+1].op {
				return nil, []byte("sh: 1: Syntax error: newline unexpected\n"), 2
			}
			redirect = m.resolve(args[i+1], *cwd)
			args = args[:i]
			break
		}
	}
	if len(args) == 0 {
		return nil, nil, 0
	}

	var stdout, stderr []byte
	var code int
	switch args[0].text {
	case "ls":
		stdout, stderr, code = m.handleLs(args[1:], *cwd)
	case "pwd":
		stdout = []byte(*cwd + "\n")
	case "cd":
		stdout, stderr, code = m.handleCd(args[1:], cwd)
	case "mkdir":
		stdout, stderr, code = m.handleMkdir(args[1:], *cwd)
	case "touch":
		stdout, stderr, code = m.handleTouch(args[1:], *cwd)
	case "echo":
		stdout = handleEcho(args[1:])
	case "grep":
		stdout, stderr, code = m.handleGrep(args[1:], *cwd)
	case "cat":
		stdout, stderr, code = m.handleCat(args[1:], *cwd)
	default:
		return nil, []byte(fmt.Sprintf("sh: 1: %s: not found\n", args[0].text)), 127
	}

	if redirect == "" || code != 0 {
		return stdout, stderr, code
	}
	if err := m.fs.Append(redirect, stdout); err != nil {
		return nil, []byte(fmt.Sprintf("sh: 1: cannot create %s: %s\n", redirect, describeRedirect(err))), 2
	}
	return nil, stderr, 0
}

// handleLs processes: ls [-a] [path...]
func (m *MockClient) handleLs(args []token, cwd string) ([]byte, []byte, int) {
	showAll := false
	var targets []string
	for _, a := range args {
		if strings.HasPrefix(a.text, "-") {
			showAll = showAll || strings.Contains(a.text, "a")
			continue
		}
		targets = append(targets, m.resolve(a, cwd))
	}
	if len(targets) == 0 {
		targets = []string{cwd}
	}

	var out, errOut bytes.Buffer
	code := 0
	for _, dir := range targets {
		names, err := m.fs.List(dir)
		if err != nil {
			fmt.Fprintf(&errOut, "ls: cannot access '%s': %s\n", dir, describe(err))
			code = 2
			continue
		}
		for _, name := range names {
			if !showAll && strings.HasPrefix(name, ".") {
				continue
			}
			out.WriteString(name + "\n")
		}
	}
	return out.Bytes(), errOut.Bytes(), code
}

// handleCd processes: cd path
func (m *MockClient) handleCd(args []token, cwd *string) ([]byte, []byte, int) {
	target := m.home
	if len(args) > 0 {
		target = m.resolve(args[0], *cwd)
	}
	if !m.fs.IsDir(target) {
		return nil, []byte(fmt.Sprintf("sh: 1: cd: can't cd to %s\n", target)), 2
	}
	*cwd = target
	return nil, nil, 0
}

// handleMkdir processes: mkdir [-p] [-m mode] path...
func (m *MockClient) handleMkdir(args []token, cwd string) ([]byte, []byte, int) {
	parents := false
	mode := os.FileMode(0755)
	var targets []string

	for i := 0; i < len(args); i++ {
		switch args[i].text {
		case "-p":
			parents = true
		case "-m":
			if i+1 >= len(args) {
				return nil, []byte("mkdir: option requires an argument -- 'm'\n"), 1
			}
			i++
			parsed, err := strconv.ParseUint(args[i].text, 8, 32)
			if err != nil {
				return nil, []byte(fmt.Sprintf("mkdir: invalid mode '%s'\n", args[i].text)), 1
			}
			mode = os.FileMode(parsed)
		default:
			targets = append(targets, m.resolve(args[i], cwd))
		}
	}
	if len(targets) == 0 {
		return nil, []byte("mkdir: missing operand\n"), 1
	}

	for _, dir := range targets {
		var err error
		if parents {
			err = m.fs.MkdirAll(dir)
		} else {
			err = m.fs.Mkdir(dir, mode)
		}
		if err != nil {
			return nil, []byte(fmt.Sprintf("mkdir: cannot create directory '%s': %s\n", dir, describe(err))), 1
		}
	}
	return nil, nil, 0
}

// handleTouch processes: touch path...
func (m *MockClient) handleTouch(args []token, cwd string) ([]byte, []byte, int) {
	if len(args) == 0 {
		return nil, []byte("touch: missing file operand\n"), 1
	}
	for _, a := range args {
		p := m.resolve(a, cwd)
		if err := m.fs.Touch(p); err != nil {
			return nil, []byte(fmt.Sprintf("touch: cannot touch '%s': %s\n", a.text, describe(err))), 1
		}
	}
	return nil, nil, 0
}

// handleEcho processes: echo [-n] words...
func handleEcho(args []token) []byte {
	newline := true
	if len(args) > 0 && args[0].text == "-n" {
		newline = false
		args = args[1:]
	}
	words := make([]string, len(args))
	for i, a := range args {
		words[i] = a.text
	}
	out := strings.Join(words, " ")
	if newline {
		out += "\n"
	}
	return []byte(out)
}

// handleGrep processes fixed-string searches: grep [-q] [-x] [-F] pattern file...
func (m *MockClient) handleGrep(args []token, cwd string) ([]byte, []byte, int) {
	quiet, whole := false, false
	var operands []token
	for _, a := range args {
		if strings.HasPrefix(a.text, "-") && len(operands) == 0 {
			quiet = quiet || strings.Contains(a.text, "q")
			whole = whole || strings.Contains(a.text, "x")
			continue
		}
		operands = append(operands, a)
	}
	if len(operands) < 2 {
		return nil, []byte("Usage: grep [OPTION]... PATTERNS [FILE]...\n"), 2
	}

	pattern := operands[0].text
	var out, errOut bytes.Buffer
	matched, failed := false, false
	for _, f := range operands[1:] {
		content, err := m.fs.ReadFile(m.resolve(f, cwd))
		if err != nil {
			fmt.Fprintf(&errOut, "grep: %s: %s\n", f.text, describe(err))
			failed = true
			continue
		}
		for _, line := range strings.Split(string(content), "\n") {
			hit := strings.Contains(line, pattern)
			if whole {
				hit = line == pattern
			}
			if !hit {
				continue
			}
			matched = true
			if !quiet {
				out.WriteString(line + "\n")
			}
		}
	}

	switch {
	case matched && quiet:
		return nil, nil, 0
	case failed:
		return out.Bytes(), errOut.Bytes(), 2
	case matched:
		return out.Bytes(), nil, 0
	}
	return nil, nil, 1
}

// handleCat processes: cat path...
func (m *MockClient) handleCat(args []token, cwd string) ([]byte, []byte, int) {
	var out bytes.Buffer
	for _, a := range args {
		content, err := m.fs.ReadFile(m.resolve(a, cwd))
		if err != nil {
			return out.Bytes(), []byte(fmt.Sprintf("cat: %s: %s\n", a.text, describe(err))), 1
		}
		out.Write(content)
	}
	return out.Bytes(), nil, 0
}

// resolve expands a leading unquoted ~ and makes the path absolute.
func (m *MockClient) resolve(t token, cwd string) string {
	p := t.text
	if t.tilde && (p == "~" || strings.HasPrefix(p, "~/")) {
		p = m.home + p[1:]
	}
	if !path.IsAbs(p) {
		p = path.Join(cwd, p)
	}
	return path.Clean(p)
}

func describe(err error) string {
	switch {
	case stderrors.Is(err, ErrNotExist):
		return "No such file or directory"
	case stderrors.Is(err, ErrExist):
		return "File exists"
	case stderrors.Is(err, ErrNotDir):
		return "Not a directory"
	case stderrors.Is(err, ErrIsDir):
		return "Is a directory"
	}
	return err.Error()
}

func describeRedirect(err error) string {
	if stderrors.Is(err, ErrNotExist) {
		return "Directory nonexistent"
	}
	return describe(err)
}

// token is one shell word, or an operator when op is set.
type token struct {
	text  string
	op    bool
	tilde bool // word started with an unquoted ~
}

// tokenize splits a command line into words, honouring single quotes,
// double quotes and backslash escapes. Only `&&` and `>>` are recognised as operators.
func tokenize(cmd string) ([]token, error) {
	var tokens []token
	var cur strings.Builder
	inWord, tilde := false, false

	flush := func() {
		if inWord {
			tokens = append(tokens, token{text: cur.String(), tilde: tilde})
		}
		cur.Reset()
		inWord, tilde = false, false
	}

	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		case c == '\'':
			end := strings.IndexByte(cmd[i+1:], '\'')
			if end < 0 {
				return nil, stderrors.New("Unterminated quoted string")
			}
			cur.WriteString(cmd[i+1 : i+1+end])
			inWord = true
			i += end + 1
		case c == '"':
			j := i + 1
			for ; j < len(cmd) && cmd[j] != '"'; j++ {
				if cmd[j] == '\\' && j+1 < len(cmd) && strings.IndexByte("\"\\$`", cmd[j+1]) >= 0 {
					j++
				}
				cur.WriteByte(cmd[j])
			}
			if j >= len(cmd) {
				return nil, stderrors.New("Unterminated quoted string")
			}
			inWord = true
			i = j
		case c == '\\' && i+1 < len(cmd):
			i++
			cur.WriteByte(cmd[i])
			inWord = true
		case c == '&' && i+1 < len(cmd) && cmd[i+1] == '&':
			flush()
			tokens = append(tokens, token{text: "&&", op: true})
			i++
		case c == '>' && i+1 < len(cmd) && cmd[i+1] == '>':
			flush()
			tokens = append(tokens, token{text: ">>", op: true})
			i++
		case c == '~' && !inWord:
			tilde = true
			inWord = true
			cur.WriteByte(c)
		default:
			inWord = true
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens, nil
}

func splitChain(tokens []token) [][]token {
	var segments [][]token
	var current []token
	for _, t := range tokens {
		if t.op && t.text == "&&" {
			segments = append(segments, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	return append(segments, current)
}
