package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"randomness-relay/common"
	"randomness-relay/config"
	"randomness-relay/log"
	"randomness-relay/node"

	"github.com/urfave/cli"
)

const (
	flagCfg = "cfg"
	flagSK  = "privatekey"
)

var (
	// Version represents the program based on the git tag
	Version = "v0.1.0"
	// Commit represents the program based on the git commit
	Commit = "dev"
	// Date represents the date of application was built
	Date = ""
)

func cmdVersion(c *cli.Context) error {
	fmt.Printf("Version = \"%v\"\n", Version)
	fmt.Printf("Build = \"%v\"\n", Commit)
	fmt.Printf("Date = \"%v\"\n", Date)
	return nil
}

func loadConfig(c *cli.Context) (*config.Node, error) {
	cfg, err := config.LoadNode(c.String(flagCfg))
	if err != nil {
		if err := cli.ShowCommandHelp(c, c.Command.Name); err != nil {
			panic(err)
		}
		return nil, common.Wrap(fmt.Errorf("error loading config: %w", err))
	}
	log.Init(cfg.Log.Level, cfg.Log.Out)
	return cfg, nil
}

func cmdImportKey(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return common.Wrap(err)
	}
	sk := c.String(flagSK)
	if sk == "" {
		sk = cfg.EthClient.PrivateKey
	}
	if sk == "" {
		return common.Wrap(fmt.Errorf("no private key given"))
	}
	account, err := node.ImportKey(node.NewKeyStore(cfg), sk, cfg.EthClient.Keystore.Password)
	if err != nil {
		return common.Wrap(err)
	}
	log.Infof("Key for address %v is in the keystore %v", account.Address.Hex(),
		cfg.EthClient.Keystore.Path)
	return nil
}

func waitSigInt() {
	stopCh := make(chan interface{})

	// catch ^C to send the stop signal
	ossig := make(chan os.Signal, 1)
	signal.Notify(ossig, os.Interrupt, syscall.SIGTERM)
	const forceStopCount = 3
	go func() {
		n := 0
		for sig := range ossig {
			log.Infow("Received signal", "signal", sig)
			stopCh <- nil
			n++
			if n == forceStopCount {
				log.Fatalf("Received %v stop signals", forceStopCount)
			}
		}
	}()
	<-stopCh
}

func cmdRun(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return common.Wrap(err)
	}
	innerNode, err := node.NewNode(cfg, c.App.Version)
	if err != nil {
		return common.Wrap(fmt.Errorf("error starting node: %w", err))
	}
	innerNode.Start()
	waitSigInt()
	innerNode.Stop()

	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "randomness-relay"
	app.Usage = "relays drand rounds and sequencer commit-reveal values to the randomness oracles"
	app.Version = Version

	cfgFlag := cli.StringFlag{
		Name:  flagCfg,
		Usage: "Node configuration `FILE`",
	}

	app.Commands = []cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Show the application version and build",
			Action:  cmdVersion,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the relay",
			Action:  cmdRun,
			Flags:   []cli.Flag{cfgFlag},
		},
		{
			Name:    "importkey",
			Aliases: []string{},
			Usage:   "Import an ethereum private key into the keystore",
			Action:  cmdImportKey,
			Flags: []cli.Flag{
				cfgFlag,
				cli.StringFlag{
					Name:  flagSK,
					Usage: "ethereum `PRIVATE_KEY` in hex, PRIVATE_KEY env by default",
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", common.Wrap(err))
		os.Exit(1)
	}
}
