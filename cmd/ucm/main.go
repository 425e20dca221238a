package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/viper"

	"github.com/evanschultz/ucm/internal/app"
	"github.com/evanschultz/ucm/internal/domain"
	"github.com/evanschultz/ucm/internal/ident"
)

// version stores a package-level helper value.
var version = "dev"

// Exit codes are stable so scripts can branch on the failure kind.
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitNotFound   = 3
	exitDuplicate  = 4
	exitCapacity   = 5
	exitDangling   = 6
	exitSelfRef    = 7
	exitCycle      = 8
	exitInUse      = 9
	exitStorageIO  = 10
)

// main handles main.
func main() {
	err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	os.Exit(exitCode(err))
}

// cli carries the process streams and settings shared by every command.
type cli struct {
	v      *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

// run builds the command tree and executes args.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	v := viper.New()
	v.SetEnvPrefix("UCM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	c := &cli{v: v, stdin: stdin, stdout: stdout, stderr: stderr, now: time.Now}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// validationErrors are the input errors reported with exitValidation.
var validationErrors = []error{
	domain.ErrInvalidID,
	domain.ErrInvalidName,
	domain.ErrInvalidTitle,
	domain.ErrInvalidCategory,
	domain.ErrInvalidPriority,
	domain.ErrInvalidStatus,
	domain.ErrInvalidScenarioType,
	domain.ErrInvalidActorKind,
	domain.ErrInvalidSystemType,
	domain.ErrInvalidStep,
	domain.ErrInvalidStepOrder,
	domain.ErrInvalidRelation,
	domain.ErrInvalidTargetType,
	domain.ErrInvalidCondition,
	ident.ErrTokenCollision,
	app.ErrUnsupportedSnapshot,
	app.ErrStoreNotEmpty,
	errUsage,
}

// exitCode maps an error onto the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, app.ErrNotFound):
		return exitNotFound
	case errors.Is(err, app.ErrDuplicateIdentifier):
		return exitDuplicate
	case errors.Is(err, app.ErrCapacityExceeded):
		return exitCapacity
	case errors.Is(err, app.ErrDanglingTarget):
		return exitDangling
	case errors.Is(err, app.ErrSelfReference):
		return exitSelfRef
	case errors.Is(err, app.ErrCycleDetected):
		return exitCycle
	case errors.Is(err, app.ErrReferencedEntityInUse):
		return exitInUse
	case errors.Is(err, app.ErrStorageIO):
		return exitStorageIO
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return exitValidation
		}
	}
	return exitFailure
}
