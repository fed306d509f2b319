package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/interfaces"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// CommandError is a git invocation that exited with a non-zero status.
// Error() is the trimmed stderr so it can be shown to a model as is.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return "git exited with status " + strconv.Itoa(e.ExitCode)
}

// isolatedEnv keeps git from paging, prompting for credentials or loading system and user
// config, where aliases and external diff drivers live
var isolatedEnv = []string{
	"GIT_PAGER=cat",
	"GIT_TERMINAL_PROMPT=0",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=" + os.DevNull,
	"GIT_OPTIONAL_LOCKS=0",
}

// Shell runs the git binary inside a working tree
type Shell struct {
	dir string
	bin string
}

func NewShell(dir string) *Shell {
	return &Shell{dir: dir, bin: "git"}
}

func (x *Shell) Run(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, x.bin, args...)
	cmd.Dir = x.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cmd.Environ(), isolatedEnv...)

	ctxlog.From(ctx).Debug("Running git", "args", args, "dir", x.dir)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &CommandError{
				Args:     args,
				Stderr:   strings.TrimSpace(stderr.String()),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return "", goerr.Wrap(err, "failed to run git", goerr.V("args", args), goerr.V("dir", x.dir))
	}

	return stdout.String(), nil
}

var _ interfaces.GitRunner = &Shell{}
