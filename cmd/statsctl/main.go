// Command statsctl runs one-off maintenance and reporting jobs against the stats store.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "statsctl",
		Usage: "inspect and repair group ratings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
			&cli.StringFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "group id"},
		},
		Commands: []*cli.Command{
			recalculateCommand(),
			leaderboardCommand(),
			historyCommand(),
			chartCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
