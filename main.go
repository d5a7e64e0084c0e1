package main

import (
	"flag"
	"log"

	"vescollector/cmd"
)

func main() {
	configFile := flag.String("config", "", "Path to the collector YAML configuration file")
	verbose := flag.Bool("verbose", false, "Log at debug level and echo logs to the console")
	apiVersion := flag.String("api-version", "", "Override the event listener API version")
	flag.Parse()

	if err := cmd.Run(cmd.Options{
		ConfigFile: *configFile,
		Verbose:    *verbose,
		APIVersion: *apiVersion,
	}); err != nil {
		log.Fatalf("Error running collector: %v", err)
	}
}
