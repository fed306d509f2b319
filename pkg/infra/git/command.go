package git

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrEmptyCommand     = goerr.New("git command is empty")
	ErrUnclosedQuote    = goerr.New("unclosed quote in git command")
	ErrRefusedCommand   = goerr.New("only read-only git subcommands are allowed")
	ErrRefusedGitOption = goerr.New("git option is not allowed")
)

// shell operators are refused because commands are not run by a shell
var shellOperators = map[string]bool{
	"|": true, "||": true, "&": true, "&&": true, ";": true,
	">": true, ">>": true, "<": true, "2>": true, "2>&1": true,
}

// ReadOnlySubcommands lists what a model may run. None of them writes to the repository
// or its config.
var ReadOnlySubcommands = map[string]bool{
	"log":       true,
	"show":      true,
	"blame":     true,
	"diff":      true,
	"rev-parse": true,
	"rev-list":  true,
	"ls-files":  true,
	"ls-tree":   true,
}

// long options that write files, read files outside the repository, run external programs
// or point git at another repository
var refusedOptions = []string{
	"--output",
	"--ext-diff",
	"--textconv",
	"--no-index",
	"--contents",
	"--git-dir",
	"--work-tree",
	"--exec-path",
	"--config-env",
	"--namespace",
}

// ParseCommand turns a command line such as `git log -n 1 -- "src/Foo Bar.java"` into git
// arguments. The leading "git" is optional; single and double quotes group words. Global
// options are refused and the subcommand must be in ReadOnlySubcommands.
func ParseCommand(command string) ([]string, error) {
	words, err := splitWords(command)
	if err != nil {
		return nil, err
	}
	if len(words) > 0 && words[0] == "git" {
		words = words[1:]
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	for _, w := range words {
		if shellOperators[w] {
			return nil, goerr.Wrap(ErrRefusedCommand, "shell operator found", goerr.V("operator", w))
		}
	}

	// -C, -c and --git-dir only exist before the subcommand
	if strings.HasPrefix(words[0], "-") {
		return nil, goerr.Wrap(ErrRefusedGitOption, "global git options are not allowed", goerr.V("option", words[0]))
	}
	if !ReadOnlySubcommands[words[0]] {
		return nil, goerr.Wrap(ErrRefusedCommand, "subcommand is not allowed", goerr.V("command", words[0]))
	}

	for _, w := range words[1:] {
		if w == "--" {
			break
		}
		if isRefusedOption(w) {
			return nil, goerr.Wrap(ErrRefusedGitOption, "refused git option", goerr.V("option", w))
		}
	}

	return words, nil
}

// isRefusedOption also catches abbreviations such as --out=x, which git expands to --output
func isRefusedOption(w string) bool {
	if !strings.HasPrefix(w, "--") || w == "--" {
		return false
	}
	name, _, _ := strings.Cut(w, "=")
	for _, opt := range refusedOptions {
		if strings.HasPrefix(name, opt) || (len(name) > 3 && strings.HasPrefix(opt, name)) {
			return true
		}
	}
	return false
}

func splitWords(s string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == '\\':
			escaped = true
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, goerr.Wrap(ErrUnclosedQuote, "failed to split git command", goerr.V("command", s))
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
