package toolexec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/rfqextract/internal/errors"
)

// TestHelperProcess stands in for the external tools. It is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("TOOLEXEC_HELPER") != "1" {
		return
	}
	defer os.Exit(0)

	switch os.Getenv("TOOLEXEC_MODE") {
	case "echo":
		fmt.Fprint(os.Stdout, "hello from tool")
	case "fail":
		fmt.Fprint(os.Stderr, "bad input")
		os.Exit(3)
	case "sleep":
		time.Sleep(5 * time.Second)
	}
}

func helperRunner(t *testing.T, mode string, cfg Config) *Runner {
	t.Helper()
	r := NewRunner(cfg, zap.NewNop())
	r.lookPath = func(name string) (string, error) { return name, nil }
	r.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "TOOLEXEC_HELPER=1", "TOOLEXEC_MODE="+mode)
		return cmd
	}
	return r
}

func TestRun_Stdout(t *testing.T) {
	r := helperRunner(t, "echo", DefaultConfig())

	out, err := r.Run(context.Background(), "/usr/bin/pdftotext", "-layout", "in.pdf", "-")

	require.NoError(t, err)
	assert.Equal(t, "hello from tool", string(out))
}

func TestRun_NonZeroExit(t *testing.T) {
	r := helperRunner(t, "fail", DefaultConfig())

	_, err := r.Run(context.Background(), "tesseract")

	require.Error(t, err)
	assert.Equal(t, "TOOL_003", apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "bad input")
}

func TestRun_Timeout(t *testing.T) {
	r := helperRunner(t, "sleep", Config{Timeout: 100 * time.Millisecond})

	_, err := r.Run(context.Background(), "pdftoppm")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrToolTimeout))
}

func TestRun_Missing(t *testing.T) {
	r := NewRunner(DefaultConfig(), nil)
	r.lookPath = func(name string) (string, error) { return "", exec.ErrNotFound }

	_, err := r.Run(context.Background(), "antiword", "x.doc")

	assert.True(t, errors.Is(err, apperrors.ErrToolMissing))
	assert.False(t, r.Available("antiword"))
}

func TestRun_BreakerOpensAfterFailures(t *testing.T) {
	r := helperRunner(t, "fail", Config{BreakerFailures: 2, BreakerCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Run(ctx, "tesseract")
		require.True(t, errors.Is(err, apperrors.ErrToolFailed))
	}
	assert.Equal(t, "open", r.State("tesseract"))

	_, err := r.Run(ctx, "tesseract")
	assert.True(t, errors.Is(err, apperrors.ErrCircuitOpen))

	// breakers are per tool
	assert.Equal(t, "closed", r.State("pdftoppm"))
}

func TestRun_CallerCancelDoesNotTripBreaker(t *testing.T) {
	r := helperRunner(t, "sleep", Config{BreakerFailures: 1, BreakerCooldown: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	_, err := r.Run(ctx, "tesseract")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, "closed", r.State("tesseract"))
}

func TestRun_CallerDeadlineDoesNotTripBreaker(t *testing.T) {
	r := helperRunner(t, "sleep", Config{BreakerFailures: 1, BreakerCooldown: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, "pdftoppm")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, apperrors.ErrToolTimeout))
	assert.Equal(t, "closed", r.State("pdftoppm"))
}

func TestRun_ToolTimeoutTripsBreaker(t *testing.T) {
	r := helperRunner(t, "sleep", Config{Timeout: 100 * time.Millisecond, BreakerFailures: 1, BreakerCooldown: time.Minute})

	_, err := r.Run(context.Background(), "pdftoppm")

	require.True(t, errors.Is(err, apperrors.ErrToolTimeout))
	assert.Equal(t, "open", r.State("pdftoppm"))
}
