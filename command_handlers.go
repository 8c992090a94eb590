package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-errors"
)

// PasswordHasher hashes passwords and enforces the password policy
type PasswordHasher interface {
	PasswordAuthenticator
	CheckPolicy(password string) error
	RandomPasswordHash() string
}

var _ PasswordHasher = BcryptHasher{}

const commandTimeout = 10 * time.Second

// handlerDeps are shared by the command handlers
type handlerDeps struct {
	repo        RepositoryManager
	hasher      PasswordHasher
	logger      Logger
	sink        ActivitySink
	phoneRegion string
	exec        *runner.Handler
}

type HandlerOption func(*handlerDeps)

func WithHandlerLogger(logger Logger) HandlerOption {
	return func(d *handlerDeps) {
		d.logger = normalizeLogger(logger)
	}
}

func WithHandlerActivitySink(sink ActivitySink) HandlerOption {
	return func(d *handlerDeps) {
		d.sink = normalizeActivitySink(sink)
	}
}

// WithHandlerPhoneRegion sets the region used to parse local phone numbers
func WithHandlerPhoneRegion(region string) HandlerOption {
	return func(d *handlerDeps) {
		if region != "" {
			d.phoneRegion = region
		}
	}
}

func newHandlerDeps(repo RepositoryManager, hasher PasswordHasher, opts ...HandlerOption) handlerDeps {
	d := handlerDeps{
		repo:        repo,
		hasher:      hasher,
		logger:      defLogger{},
		sink:        noopActivitySink{},
		phoneRegion: DefaultPhoneRegion,
		exec:        runner.NewHandler(
			runner.WithTimeout(commandTimeout),
			runner.WithErrorHandler(nil),
		),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// passwordHash hashes the given password after checking the policy. An empty
// password yields a random hash.
func (d handlerDeps) passwordHash(password string) (string, error) {
	if password == "" {
		return d.hasher.RandomPasswordHash(), nil
	}
	if err := d.hasher.CheckPolicy(password); err != nil {
		return "", err
	}
	hash, err := d.hasher.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return hash, nil
}

func (d handlerDeps) record(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, d.sink, d.logger, event)
}

// run executes fn under the command runner, which bounds it with
// commandTimeout and turns panics into errors. The message must already be
// validated.
func run[T command.Message, R any](ctx context.Context, d handlerDeps, msg T, fn func(context.Context, T) (R, error)) (R, error) {
	if ctx.Err() != nil {
		var zero R
		return zero, cancelled(ctx, msg.Type())
	}
	return runner.RunQuery(ctx, d.exec, command.QueryFunc[T, R](fn), msg)
}

func cancelled(ctx context.Context, op string) error {
	return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during "+op)
}

// txError keeps rich errors raised inside a transaction and maps anything
// else to a store failure
func txError(err error, op string) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return unavailable(err, op)
}
