// Package firewall wraps the host ufw frontend behind a small capability
// interface. It shells out rather than speaking netfilter directly, so the
// hub stays aligned with whatever rules the operator manages by hand.
package firewall

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var ErrPermissionDenied = errors.New("firewall operation requires elevated privileges")

// Runner executes a host command and returns its combined output. Injected
// so tests never touch the real firewall.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Controller struct {
	run     Runner
	useSudo bool
	logger  *zap.Logger
}

func NewController(useSudo bool, logger *zap.Logger) *Controller {
	return &Controller{
		run:     execRunner,
		useSudo: useSudo,
		logger:  logger,
	}
}

// NewControllerWithRunner is the test constructor.
func NewControllerWithRunner(run Runner, useSudo bool, logger *zap.Logger) *Controller {
	return &Controller{run: run, useSudo: useSudo, logger: logger}
}

func (c *Controller) Enable(ctx context.Context) error {
	if _, err := c.ufw(ctx, "--force", "enable"); err != nil {
		return err
	}
	c.logger.Info("firewall enabled")
	return nil
}

func (c *Controller) Disable(ctx context.Context) error {
	if _, err := c.ufw(ctx, "disable"); err != nil {
		return err
	}
	c.logger.Info("firewall disabled")
	return nil
}

// Active reports whether the firewall is currently enforcing rules.
func (c *Controller) Active(ctx context.Context) (bool, error) {
	out, err := c.ufw(ctx, "status")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Status:") {
			return strings.Contains(line, "active"), nil
		}
	}
	return false, fmt.Errorf("unexpected ufw status output: %q", strings.TrimSpace(string(out)))
}

// OpenPort allows inbound traffic to a service port.
func (c *Controller) OpenPort(ctx context.Context, port int, proto string) error {
	if _, err := c.ufw(ctx, "allow", rulespec(port, proto)); err != nil {
		return err
	}
	c.logger.Info("firewall port opened", zap.Int("port", port), zap.String("proto", proto))
	return nil
}

func (c *Controller) ClosePort(ctx context.Context, port int, proto string) error {
	if _, err := c.ufw(ctx, "delete", "allow", rulespec(port, proto)); err != nil {
		return err
	}
	c.logger.Info("firewall port closed", zap.Int("port", port), zap.String("proto", proto))
	return nil
}

func rulespec(port int, proto string) string {
	if proto == "" {
		proto = "tcp"
	}
	return strconv.Itoa(port) + "/" + proto
}

func (c *Controller) ufw(ctx context.Context, args ...string) ([]byte, error) {
	name := "ufw"
	if c.useSudo {
		name = "sudo"
		args = append([]string{"-n", "ufw"}, args...)
	}

	out, err := c.run(ctx, name, args...)
	if err != nil {
		if permissionDenied(out, err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(string(out)))
		}
		return nil, fmt.Errorf("ufw %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

func permissionDenied(out []byte, err error) bool {
	text := strings.ToLower(string(out) + err.Error())
	return strings.Contains(text, "permission denied") ||
		strings.Contains(text, "must be run as root") ||
		strings.Contains(text, "a password is required")
}
