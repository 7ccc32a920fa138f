package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/agentic-research/procmirror/api"
)

// DefaultControllerPath is where the controller is installed by default.
const DefaultControllerPath = `C:\Program Files\WinAutomation\WinAutomationController.exe`

// consoleTarget selects the console's own namespace in query commands.
const consoleTarget = "console"

// Runner executes the controller binary and returns its stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Controller is a NamespaceClient backed by the controller executable.
// Each method spawns one process and waits for it.
type Controller struct {
	binary string
	run    Runner
	log    logrus.FieldLogger
}

// NewController returns a client for the executable at binary.
func NewController(binary string, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{binary: binary, run: execRunner, log: log}
}

// ListChildFolders implements NamespaceClient. The controller only reports
// the whole folder tree, so every call fetches and searches it afresh.
func (c *Controller) ListChildFolders(ctx context.Context, remotePath string) ([]string, error) {
	out, err := c.call(ctx, "/getallfolders", consoleTarget)
	if err != nil {
		return nil, err
	}
	tree, err := ParseFolderTree(out)
	if err != nil {
		return nil, err
	}
	return ChildFolderNames(tree, remotePath)
}

// ListLeaves implements NamespaceClient.
func (c *Controller) ListLeaves(ctx context.Context, remotePath string) ([]api.Leaf, error) {
	out, err := c.call(ctx, "/getprocessesoffolder", remotePath, consoleTarget)
	if err != nil {
		return nil, err
	}
	return ParseLeafList(out, remotePath)
}

// TransferLeafOut implements NamespaceClient.
func (c *Controller) TransferLeafOut(ctx context.Context, remotePath, dstFile string) error {
	_, err := c.call(ctx, "/export", remotePath, dstFile)
	return err
}

// TransferLeafIn implements NamespaceClient.
func (c *Controller) TransferLeafIn(ctx context.Context, srcFile, remotePath string) error {
	_, err := c.call(ctx, "/import", srcFile, remotePath)
	return err
}

func (c *Controller) call(ctx context.Context, args ...string) ([]byte, error) {
	c.log.WithField("args", strings.Join(args, " ")).Debug("controller call")
	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", args[0], err)
	}
	return out, nil
}

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

var _ NamespaceClient = (*Controller)(nil)
