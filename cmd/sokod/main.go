package main

import (
	"log"

	"github.com/murende/soko/core/cmd"
)

func main() {
	if err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
	}); err != nil {
		log.Fatalf("sokod: %v", err)
	}
}
