package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/goydb/setview/pkg/setview"
)

func main() {
	cfg, err := setview.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	cfg.ParseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sv, err := cfg.BuildSetview(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer sv.Close()
	go sv.Run(ctx)

	loggedRouter := handlers.LoggingHandler(os.Stdout, sv.Handler)
	srv := &http.Server{Addr: cfg.ListenAddress, Handler: loggedRouter}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Printf("Listening on %s...", cfg.ListenAddress)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Print(err)
	}
}
