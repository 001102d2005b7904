package main

import (
	"flag"
	"io"
	"os"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/schalkdaniel/distributed-lm/internal/events"
	"github.com/schalkdaniel/distributed-lm/internal/server"
)

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	logLevel := flag.String("log-level", "INFO", "log level")
	flag.Parse()

	_ = os.Mkdir("log", 0o777)
	logFile, err := os.OpenFile("log/run.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			panic(err)
		}
	}()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "dlm",
		Level:  hclog.LevelFromString(*logLevel),
		Output: io.MultiWriter(os.Stdout, logFile),
	})

	eventBus := events.NewEventBus()

	handler := server.NewHandler(logger, eventBus)

	defaultRouter := mux.NewRouter()
	handler.Register(defaultRouter)

	server.StartHttpServer(logger, defaultRouter, *port)
}
