package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/helixlearn/helix/internal/config"
	"github.com/helixlearn/helix/internal/content"
	"github.com/helixlearn/helix/internal/sequencer"
	"github.com/helixlearn/helix/internal/store"
)

// app bundles the store, curriculum, and tunables one command invocation
// works with. The facade itself is built per user, so its logical clock can
// resume from the user's persisted attempt log.
type app struct {
	opts       *RootOptions
	store      *store.Store
	curriculum *content.Curriculum
	tunables   config.Tunables
}

func newApp(opts *RootOptions) (*app, error) {
	tun := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if tun, err = config.Load(opts.ConfigPath); err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
	}
	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open state database", err)
	}
	return &app{
		opts:       opts,
		store:      st,
		curriculum: content.Builtin(),
		tunables:   tun,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newFacade builds a facade whose clock resumes after the user's last
// persisted attempt.
func (a *app) newFacade(ctx context.Context, userID string) (*sequencer.Facade, error) {
	seq, err := a.store.LastSeq(ctx, userID)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read attempt log", err)
	}
	f, err := sequencer.New(a.tunables, a.curriculum, a.curriculum,
		sequencer.WithClock(sequencer.NewClockAt(seq)))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "build engine", err)
	}
	return f, nil
}

// loadFacade builds a facade and rehydrates the user's saved snapshot
// into it. An unknown user is a command error.
func (a *app) loadFacade(ctx context.Context, userID string) (*sequencer.Facade, error) {
	f, err := a.newFacade(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := a.store.LoadSnapshot(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("user %q is not initialized (run: helix init %s)", userID, userID), err)
	}
	if err != nil {
		return nil, WrapExitError(ExitFailure, "load snapshot", err)
	}
	if err := f.LoadSnapshot(snap); err != nil {
		return nil, WrapExitError(ExitFailure, "rehydrate state", err)
	}
	return f, nil
}

// save persists the user's current snapshot.
func (a *app) save(ctx context.Context, f *sequencer.Facade, userID string) error {
	snap, err := f.Snapshot(userID)
	if err != nil {
		return WrapExitError(ExitFailure, "snapshot state", err)
	}
	if err := a.store.SaveSnapshot(ctx, snap, time.Now()); err != nil {
		return WrapExitError(ExitFailure, "save snapshot", err)
	}
	return nil
}

// formatter builds the output formatter for a command.
func (a *app) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: a.opts.Format, Writer: w, Verbose: a.opts.Verbose}
}

// facadeCode extracts the facade error code for JSON error envelopes.
func facadeCode(err error) string {
	var serr *sequencer.Error
	if errors.As(err, &serr) {
		return string(serr.Code)
	}
	return "ERROR"
}

// reportFacadeError renders a facade error and converts it to an exit
// code: caller mistakes exit 2, engine failures exit 1.
func reportFacadeError(f *OutputFormatter, err error) error {
	_ = f.Error(facadeCode(err), err.Error())
	code := ExitFailure
	if sequencer.IsNotFound(err) || sequencer.IsInvalidInput(err) || sequencer.IsAlreadyInitialized(err) {
		code = ExitCommandError
	}
	return &ExitError{Code: code, Message: "", Err: err}
}
