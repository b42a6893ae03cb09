package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"wtfSocial/auth"
	"wtfSocial/crud"
	"wtfSocial/http"
	pkglog "wtfSocial/log"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" has been provided. It means that we're running in production.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	resetBool := flag.Bool("reset", false, "Drop all SQL data before starting. Refused in production.")
	flag.Parse()

	// Load configuration from defaults, a .config.json file and the environment.
	// In production the .config.json file is required.
	config, err := LoadConfig(*productionBool)
	must(err)
	pkglog.Init(config.Log)

	// Open the tree store.
	tree, err := openTree(config, *resetBool)
	must(err)

	// Start the crud services.
	services, err := crud.NewServices(
		tree,
		crud.WithUser(config.Pepper),
		crud.WithFollow(),
		crud.WithPost(),
		crud.WithLike(),
		crud.WithComment(),
		crud.WithFeed(),
	)
	must(err)
	defer services.Close()

	tokens, err := auth.NewTokens(config.HMACKey, config.SessionTTL, "wtfSocial")
	must(err)

	// Set up a webserver.
	server := http.NewServer(http.Options{
		IsProd:    config.IsProd(),
		ClientURL: config.ClientURL,
		CSRFKey:   config.CSRFKey,
	}, tokens, services)

	// Serve the app until interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, config.Addr()); err != nil {
		logger := pkglog.L()
		logger.Error().Err(err).Msg("server stopped")
	}
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
