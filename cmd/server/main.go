package main

import (
	"os"

	"github.com/adamwolf/humming/pkg/bucket"
	"github.com/tidwall/redcon"
	"github.com/zerodha/logf"
)

// buildString is the build version, injected at build-time.
var buildString = "unknown"

// App holds everything one RESP connection handler needs.
type App struct {
	bkt *bucket.Bucket
	lo  logf.Logger
}

func main() {
	ko, err := initConfig()
	if err != nil {
		os.Exit(1)
	}

	lo := initLogger(ko)
	lo.Info("booting humming", "version", buildString)

	cfgs := []bucket.Config{bucket.WithDir(ko.String("bucket.dir"))}
	if ko.Bool("bucket.direct_io") {
		cfgs = append(cfgs, bucket.WithDirectIO())
	}
	if ko.String("app.log") == "debug" {
		cfgs = append(cfgs, bucket.WithDebug())
	}

	bkt, err := bucket.Open(cfgs...)
	if err != nil {
		lo.Fatal("error opening bucket", "error", err)
	}
	defer bkt.Close()

	app := &App{bkt: bkt, lo: lo}

	mux := redcon.NewServeMux()
	mux.HandleFunc("ping", app.ping)
	mux.HandleFunc("quit", app.quit)
	mux.HandleFunc("set", app.set)
	mux.HandleFunc("get", app.get)

	addr := ko.String("server.address")
	if addr == "" {
		addr = ":6380"
	}

	lo.Info("starting server", "address", addr)
	if err := redcon.ListenAndServe(addr,
		mux.ServeRESP,
		func(conn redcon.Conn) bool {
			return true
		},
		func(conn redcon.Conn, err error) {},
	); err != nil {
		lo.Fatal("error starting server", "error", err)
	}
}
