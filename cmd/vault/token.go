package main

import (
	"errors"
	"fmt"

	httpinterface "github.com/thresholdvault/vault-daemon/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var token = cli.Command{
	Name:  "token",
	Usage: "mint a token for the given identity with the configured auth secret",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "subject",
			Usage:    "the identity the token is issued to",
			Required: true,
		},
		&cli.DurationFlag{
			Name:  "ttl",
			Usage: "validity of the token, 0 never expires",
			Value: tokenTTL,
		},
	},
	Action: tokenAction,
}

func tokenAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}
	secret := state["auth_secret"]
	if secret == "" {
		return errors.New("set auth_secret with `config set auth_secret`")
	}

	t, err := httpinterface.NewToken(
		[]byte(secret), ctx.String("subject"), ctx.Duration("ttl"),
	)
	if err != nil {
		return err
	}

	fmt.Println(t)
	return nil
}
