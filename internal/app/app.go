// Package app wires the client together: transport, credential store,
// session manager, booking lifecycle and the optional update stream.
package app

import (
	"context"
	"errors"

	"github.com/adilkhan-s/bikerent-client/config"
	"github.com/adilkhan-s/bikerent-client/internal/adapter/bookingstream"
	"github.com/adilkhan-s/bikerent-client/internal/adapter/credstore"
	"github.com/adilkhan-s/bikerent-client/internal/service/booking"
	"github.com/adilkhan-s/bikerent-client/internal/service/session"
	"github.com/adilkhan-s/bikerent-client/internal/transport"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
)

var (
	ErrNoCommand      = errors.New("no command provided")
	ErrUnknownCommand = errors.New("unknown command")
)

type App struct {
	cfg config.Config
	log logger.Logger

	session *session.Manager
	booking *booking.Lifecycle
	stream  *bookingstream.Subscriber
}

// NewApplication
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	api := transport.New(cfg.API.BaseURL, cfg.API.Timeout, cfg.API.RetryMax, log)
	store := credstore.NewFileStore(cfg.Store.Path)

	sess := session.NewManager(api, store, cfg.Auth.RenewInterval, log)
	lifecycle := booking.NewLifecycle(sess, log)

	app := &App{
		cfg:     cfg,
		log:     log,
		session: sess,
		booking: lifecycle,
	}

	if cfg.Stream.Enabled {
		app.stream = bookingstream.NewSubscriber(cfg.API.BaseURL, sess, log)
	}

	return app, nil
}

// Run dispatches a single CLI command. Errors come back carrying the log
// context of the failing action, so the caller's logger can attach it.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		config.PrintHelp()
		return ErrNoCommand
	}

	return wrap.Error(ctx, a.dispatch(ctx, args[0], args[1:]))
}

func (a *App) dispatch(ctx context.Context, cmd string, rest []string) error {
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoami(ctx)
	case "bikes":
		return a.cmdBikes(ctx)
	case "book":
		return a.cmdBook(ctx, rest)
	case "bookings":
		return a.cmdBookings(ctx)
	case "show":
		return a.cmdShow(ctx, rest)
	case "cancel":
		return a.cmdCancel(ctx, rest)
	case "start":
		return a.cmdStart(ctx, rest)
	case "end":
		return a.cmdEnd(ctx, rest)
	case "review":
		return a.cmdReview(ctx, rest)
	case "watch":
		return a.cmdWatch(ctx)
	default:
		config.PrintHelp()
		return ErrUnknownCommand
	}
}
