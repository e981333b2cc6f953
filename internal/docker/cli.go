package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	constants "nselfadmin/config"
)

// execCommand is a variable so tests can substitute the runtime binary.
var execCommand = exec.CommandContext

// waitDelay bounds how long Output waits on pipes held open by children
// of a killed process.
const waitDelay = time.Second

// CLIProvider shells out to the docker CLI. The caller's context deadline
// bounds every call; exec.CommandContext kills the process on expiry.
type CLIProvider struct {
	binary string
}

// NewCLIProvider returns a provider running binary, "docker" when empty.
func NewCLIProvider(binary string) *CLIProvider {
	if binary == "" {
		binary = constants.DEFAULT_RUNTIME_BINARY
	}
	return &CLIProvider{binary: binary}
}

func (p *CLIProvider) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := execCommand(ctx, p.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	output, err := cmd.Output()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s %s: %w", p.binary, args[0], ctxErr)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s %s: %w: %s", p.binary, args[0], err, msg)
		}
		return nil, fmt.Errorf("%s %s: %w", p.binary, args[0], err)
	}
	return output, nil
}

func (p *CLIProvider) ContainerStates(ctx context.Context) ([]byte, error) {
	return p.run(ctx, "ps", "-a", "--format", StatesFormat)
}

func (p *CLIProvider) ResourceUsage(ctx context.Context) ([]byte, error) {
	return p.run(ctx, "stats", "--no-stream", "--format", ResourceFormat)
}

func (p *CLIProvider) MemoryUsage(ctx context.Context) ([]byte, error) {
	return p.run(ctx, "stats", "--no-stream", "--format", MemoryFormat)
}

func (p *CLIProvider) NetworkIO(ctx context.Context) ([]byte, error) {
	return p.run(ctx, "stats", "--no-stream", "--format", NetworkFormat)
}

func (p *CLIProvider) DiskUsage(ctx context.Context) ([]byte, error) {
	return p.run(ctx, "system", "df", "--format", DiskFormat)
}
