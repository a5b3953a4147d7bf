package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// pipeGrace is how long Execute waits for a killed plugin's children to
// release stdout and stderr.
const pipeGrace = time.Second

// Executor runs a plugin executable once per request.
type Executor struct {
	timeout time.Duration
}

// NewExecutor returns an Executor that kills a plugin after timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute sends req to the plugin on stdin and decodes one Response from its
// stdout. The plugin's config.json is attached when req carries no config.
// The event and state are also exported as HANDPILOT_EVENT and
// HANDPILOT_STATE for plugins written as plain shell scripts.
func (e *Executor) Execute(ctx context.Context, p *Plugin, req *Request) (*Response, error) {
	if req.Config == nil && p.Config != nil {
		withConfig := *req
		withConfig.Config = p.Config
		req = &withConfig
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Executable)
	cmd.Dir = p.Path
	cmd.Env = append(os.Environ(),
		"HANDPILOT_EVENT="+req.Event,
		"HANDPILOT_STATE="+req.State,
	)
	cmd.Stdin = bytes.NewReader(body)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeGrace

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("plugin %s: timeout after %v", p.Manifest.Name, e.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("plugin %s: %w: %s", p.Manifest.Name, err, msg)
		}
		return nil, fmt.Errorf("plugin %s: %w", p.Manifest.Name, err)
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("plugin %s: failed to parse plugin response %q: %w", p.Manifest.Name, stdout.String(), err)
	}
	return &resp, nil
}
