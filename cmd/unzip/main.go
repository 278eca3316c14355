package main

import (
	"log"
	"os"

	infozip "github.com/jopamo/infozip-utils"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("unzip: ")
	if err := newUnzipApp().Run(os.Args); err != nil {
		// cli.Exit errors never reach here (urfave/cli prints them and
		// exits with their code); anything else is a parameter error.
		log.Print(err)
		os.Exit(int(infozip.ExitParam))
	}
}
