package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
)

type shellProbe struct {
	cfg *config.ShellProbe
}

// Run spawns a shell interpreter with the command as a single argument and
// captures combined output. A nonzero exit code is a probe error.
func (p *shellProbe) Run(ctx context.Context, rt *Runtime) (string, error) {
	shell, shellArgs, err := determineShell()
	if err != nil {
		return "", err
	}

	args := append(shellArgs, p.cfg.Command)
	cmd := exec.CommandContext(ctx, shell, args...)

	raw, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(raw), "\n")

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("exit code %d", exitErr.ExitCode())
		}
		return output, err
	}

	if !p.cfg.GetOutput {
		return "", nil
	}

	return output, nil
}

func determineShell() (string, []string, error) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}

	return "", nil, fmt.Errorf("no suitable shell found")
}
