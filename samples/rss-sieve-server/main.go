package main

import (
	"context"
	"log"
	"os"

	rs "github.com/rakulen/rss-sieve-go"
)

const defaultConfigFilepath = "./config.json"

func main() {
	configFilepath := defaultConfigFilepath
	if len(os.Args) > 1 {
		configFilepath = os.Args[1]
	}

	cfg, err := rs.LoadConfig(configFilepath)
	if err != nil {
		log.Fatalf("# failed to load config: %s", err)
	}

	reader, err := rs.NewReaderWithConfig(cfg)
	if err != nil {
		log.Fatalf("# failed to create a reader: %s", err)
	}

	// initial load (advances the seen-cutoff)
	if err := reader.Load(context.Background(), true); err != nil {
		log.Printf("# initial load failed: %s", err)
	}

	log.Printf("> serving filtered feed '%s' on %s", reader.FeedTitle(), cfg.Address)

	server := rs.NewServer(reader)
	if err := server.Run(cfg.Address); err != nil {
		log.Printf("# failed to start server: %s", err)
	}
}
