package main

import (
	"fmt"
	"os"
	"time"

	"github.com/axiomesh/elector"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "Elector"
	app.Usage = "Election management core"
	app.Compiled = time.Now()

	cli.VersionPrinter = func(c *cli.Context) {
		printVersion()
	}

	// global flags
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Elector storage repo path",
		},
	}

	app.Commands = []*cli.Command{
		configCMD,
		journalCMD,
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "Elector version",
			Action: func(ctx *cli.Context) error {
				printVersion()
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Elector version: %s-%s-%s\n", elector.CurrentVersion, elector.CurrentBranch, elector.CurrentCommit)
	fmt.Printf("App build date: %s\n", elector.BuildDate)
	fmt.Printf("System version: %s\n", elector.Platform)
	fmt.Printf("Golang version: %s\n", elector.GoVersion)
	fmt.Println()
}
