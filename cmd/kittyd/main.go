package main

import (
	"fmt"
	"os"

	"github.com/arkade-os/kittyd/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Version will be set during build time
var Version string

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "kittyd"
	app.Version = Version
	app.Usage = "kitty registry with a marketplace and breeding"
	app.Flags = config.NewFlags()
	app.Commands = cli.Commands{
		genesisCmd,
		createCmd,
		setPriceCmd,
		unlistCmd,
		transferCmd,
		buyCmd,
		breedCmd,
		kittyCmd,
		kittiesCmd,
		countCmd,
		balanceCmd,
		fundCmd,
	}
	return app
}
