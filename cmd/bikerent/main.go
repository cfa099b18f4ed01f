package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adilkhan-s/bikerent-client/config"
	"github.com/adilkhan-s/bikerent-client/internal/app"
	"github.com/adilkhan-s/bikerent-client/pkg/logger"
	wrap "github.com/adilkhan-s/bikerent-client/pkg/logger/wrapper"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "", "Path to the config yaml file")
	verbose    = flag.Bool("verbose", false, "Print the effective configuration")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure: %v\n", err)
		config.PrintHelp()
		os.Exit(1)
	}

	log := logger.InitLogger("bikerent", cfg.LogLevel)

	if *verbose {
		config.PrintConfig(cfg)
	}

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err := application.Run(ctx, flag.Args()); err != nil {
		if errors.Is(err, app.ErrNoCommand) || errors.Is(err, app.ErrUnknownCommand) {
			os.Exit(2)
		}
		log.Error(wrap.ErrorCtx(ctx, err), "command failed", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
