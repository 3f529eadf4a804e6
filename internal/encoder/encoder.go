package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"videoflix/internal/config"
	"videoflix/internal/fileutil"
	"videoflix/internal/logging"
	"videoflix/internal/services"
)

const stageName = "encoding"

var (
	// ErrSourceMissing means the source file was absent when the encode began.
	ErrSourceMissing = errors.New("source file missing")
	// ErrEncodeFailed means the encoder exited non-zero, timed out, or
	// produced no output.
	ErrEncodeFailed = errors.New("encode failed")
)

// commandContext is replaced in tests.
var commandContext = exec.CommandContext

// Invoker runs the configured encoder binary.
type Invoker struct {
	binary     string
	timeout    time.Duration
	videoCodec string
	crf        int
	audioCodec string
	extraArgs  []string
	container  string
	logger     *slog.Logger
}

// New builds an Invoker from the encoder section of cfg.
func New(cfg *config.Config, logger *slog.Logger) *Invoker {
	enc := cfg.Encoder
	return &Invoker{
		binary:     strings.TrimSpace(enc.Binary),
		timeout:    cfg.EncodeTimeout(),
		videoCodec: enc.VideoCodec,
		crf:        enc.CRF,
		audioCodec: enc.AudioCodec,
		extraArgs:  append([]string(nil), enc.ExtraArgs...),
		container:  strings.TrimPrefix(strings.TrimSpace(enc.Container), "."),
		logger:     logging.NewComponentLogger(logger, "encoder"),
	}
}

// OutputPath derives the rendition file written into outDir:
// <outDir>/<stem>_<profile>.<container>.
func (i *Invoker) OutputPath(outDir, source, profile string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"_"+profile+"."+i.container)
}

// Args returns the encoder argument vector for one profile.
func (i *Invoker) Args(source string, profile config.Profile, target string) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", source,
		"-s", profile.Size,
		"-c:v", i.videoCodec,
		"-crf", strconv.Itoa(i.crf),
		"-c:a", i.audioCodec,
	}
	args = append(args, i.extraArgs...)
	return append(args, target)
}

// Encode transcodes source into profile and blocks until the encoder exits.
// Output is written under outDir, which must be a scratch directory owned by
// the caller and never the directory holding source. On success the returned
// path names the written rendition. On failure the target may be partial or
// absent; callers own its removal.
func (i *Invoker) Encode(ctx context.Context, source, outDir string, profile config.Profile) (string, error) {
	logger := logging.WithContext(ctx, i.logger).With(logging.String(logging.FieldProfile, profile.Name))

	if strings.TrimSpace(outDir) == "" || filepath.Clean(outDir) == filepath.Dir(filepath.Clean(source)) {
		return "", services.Wrap(
			services.ErrValidation,
			stageName,
			"resolve output",
			fmt.Sprintf("Encoder output dir %q must be a separate scratch directory", outDir),
			ErrEncodeFailed,
		)
	}

	ok, err := fileutil.Exists(source)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "stat source", "Unable to inspect source file", err)
	}
	if !ok {
		return "", services.Wrap(
			services.ErrNotFound,
			stageName,
			"stat source",
			fmt.Sprintf("Source %s does not exist", source),
			ErrSourceMissing,
		)
	}

	target := i.OutputPath(outDir, source, profile.Name)
	args := i.Args(source, profile, target)

	runCtx := ctx
	cancel := func() {}
	if i.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, i.timeout)
	}
	defer cancel()

	logger.Info(
		"launching encoder",
		logging.String("command", i.binary+" "+strings.Join(args, " ")),
		logging.String("input", source),
		logging.String("output", target),
		logging.Duration("timeout", i.timeout),
	)

	stderr := newTailBuffer(4096)
	cmd := commandContext(runCtx, i.binary, args...)
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return "", services.Wrap(
				services.ErrTimeout,
				stageName,
				"run encoder",
				fmt.Sprintf("Encoder exceeded %s for profile %s", i.timeout, profile.Name),
				ErrEncodeFailed,
			)
		case ctx.Err() != nil:
			return "", services.Wrap(
				services.ErrTransient,
				stageName,
				"run encoder",
				"Encode interrupted",
				errors.Join(ErrEncodeFailed, ctx.Err()),
			)
		default:
			return "", services.Wrap(
				services.ErrExternalTool,
				stageName,
				"run encoder",
				encoderFailureMessage(profile.Name, stderr.String()),
				fmt.Errorf("%w: %w", ErrEncodeFailed, runErr),
			)
		}
	}

	exists, err := fileutil.Exists(target)
	if err != nil || !exists {
		return "", services.Wrap(
			services.ErrExternalTool,
			stageName,
			"verify output",
			fmt.Sprintf("Encoder exited cleanly but %s was not written", target),
			ErrEncodeFailed,
		)
	}

	logger.Info("encode completed", logging.String("output", target), logging.Duration("elapsed", elapsed))
	return target, nil
}

func encoderFailureMessage(profile, stderr string) string {
	msg := fmt.Sprintf("Encoder failed for profile %s", profile)
	if tail := lastLine(stderr); tail != "" {
		msg += " (" + tail + ")"
	}
	return msg
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for idx := len(lines) - 1; idx >= 0; idx-- {
		if line := strings.TrimSpace(lines[idx]); line != "" {
			return line
		}
	}
	return ""
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
