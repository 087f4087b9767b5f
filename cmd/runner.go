package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/services"
	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// ClientFactory builds the remote platform client for a run.
type ClientFactory func(ctx context.Context, settings shared.APISettings) (services.Platform, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	newClient  ClientFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	NewClient  ClientFactory // defaults to the iFormBuilder client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		newClient:  opts.NewClient,
	}
	if r.newClient == nil {
		r.newClient = r.ifbClient
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		formCommand, listCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) ifbClient(ctx context.Context, settings shared.APISettings) (services.Platform, error) {
	opts := services.ClientOptsFromSettings(settings)
	opts.HTTPClient = r.httpClient
	opts.Logger = r.logger

	client, err := services.NewIFBClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// loadConfig reads the config named by --config inside --dir, after loading dir/.env.
// It returns the config and the directory relative paths resolve against.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, string, error) {
	dir := cmd.String("dir")
	if err := shared.LoadEnvFile(dir); err != nil {
		return nil, dir, err
	}

	path := resolvePath(dir, cmd.String("config"))
	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, dir, err
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, dir, err
	}

	r.logger.Debug("loaded config", "path", path)
	return config, dir, nil
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	output = append(output, '\n')
	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
