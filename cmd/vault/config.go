package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
)

var (
	rpcFlag = cli.StringFlag{
		Name:  "rpcserver",
		Usage: "vaultd daemon url",
		Value: "http://localhost:8080",
	}

	identityFlag = cli.StringFlag{
		Name:  "identity",
		Usage: "the caller identity used as subject of minted tokens",
	}

	authSecretFlag = cli.StringFlag{
		Name:  "auth_secret",
		Usage: "the secret shared with vaultd to mint tokens locally",
	}

	tokenFlag = cli.StringFlag{
		Name:  "token",
		Usage: "a token issued by the daemon operator, used if no secret is set",
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the vault CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&rpcFlag,
				&identityFlag,
				&authSecretFlag,
				&tokenFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := state[key]
		if key == "auth_secret" || key == "token" {
			value = "********"
		}
		fmt.Println(key + ": " + value)
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	return setState(map[string]string{
		"rpcserver":   c.String("rpcserver"),
		"identity":    c.String("identity"),
		"auth_secret": c.String("auth_secret"),
		"token":       c.String("token"),
	})
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s has been set\n", key)
	return nil
}
