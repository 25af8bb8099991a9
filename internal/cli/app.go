// Package cli implements the rfqextract subcommands.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/rfqextract/internal/config"
	"github.com/gmsas95/rfqextract/internal/documents"
	"github.com/gmsas95/rfqextract/internal/rfq"
)

var Version = "dev"

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

// env is what every extraction command needs
type env struct {
	cfg      *config.Config
	pipeline *documents.Pipeline
	logger   *zap.Logger
	ctx      context.Context
	stop     context.CancelFunc
}

func setup(configPath string) (*env, error) {
	if err := config.LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	v, err := cfg.LoadVocabulary()
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &env{
		cfg:      cfg,
		pipeline: documents.New(cfg.PipelineOptions(v, logger)),
		logger:   logger,
		ctx:      ctx,
		stop:     stop,
	}, nil
}

func (e *env) close() {
	e.stop()
	_ = e.logger.Sync()
}

// parseFlags treats -h as a successful no-op.
func parseFlags(fs *flag.FlagSet, args []string) (bool, error) {
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func readAttachment(path string) (rfq.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rfq.Attachment{}, err
	}
	return rfq.Attachment{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
		Size:        int64(len(data)),
	}, nil
}

func readAttachments(paths []string) ([]rfq.Attachment, error) {
	out := make([]rfq.Attachment, 0, len(paths))
	for _, p := range paths {
		a, err := readAttachment(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// readText reads a file, or stdin for "-".
func readText(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	return string(data), err
}
