package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var emailFlag = cli.StringFlag{
	Name:     "email",
	Usage:    "the email of the guardian",
	Required: true,
}

var setmanager = cli.Command{
	Name:  "setmanager",
	Usage: "set the only identity allowed to register guardians",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "manager",
			Usage:    "the identity of the vault manager",
			Required: true,
		},
	},
	Action: setManagerAction,
}

var register = cli.Command{
	Name:  "register",
	Usage: "register the guardians of a vault",
	Flags: []cli.Flag{
		&vaultFlag,
		&keyFlag,
		&cli.StringFlag{
			Name:  "owner",
			Usage: "the owner of the vault, defaults to the caller identity",
		},
		&cli.Uint64Flag{
			Name:     "threshold",
			Usage:    "the number of shares required for recovery",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:     "guardian",
			Usage:    "<email>:<alias>, repeat for each guardian",
			Required: true,
		},
	},
	Action: registerAction,
}

var accept = cli.Command{
	Name:   "accept",
	Usage:  "accept the guardian invitation for a vault",
	Flags:  []cli.Flag{&vaultFlag, &emailFlag},
	Action: acceptAction,
}

var submit = cli.Command{
	Name:  "submit",
	Usage: "submit the guardian share for a vault",
	Flags: []cli.Flag{
		&vaultFlag,
		&emailFlag,
		&cli.StringFlag{
			Name:  "share",
			Usage: "the share payload",
		},
		&cli.StringFlag{
			Name:  "file",
			Usage: "path of a file containing the share payload",
		},
	},
	Action: submitAction,
}

var threshold = cli.Command{
	Name:   "threshold",
	Usage:  "show how many shares have been submitted for a vault",
	Flags:  []cli.Flag{&vaultFlag},
	Action: thresholdAction,
}

var guardians = cli.Command{
	Name:   "guardians",
	Usage:  "list the guardians of a vault",
	Flags:  []cli.Flag{&vaultFlag},
	Action: guardiansAction,
}

var guardian = cli.Command{
	Name:   "guardian",
	Usage:  "show a guardian of a vault",
	Flags:  []cli.Flag{&vaultFlag, &emailFlag},
	Action: guardianAction,
}

var myvaults = cli.Command{
	Name:   "myvaults",
	Usage:  "list the vaults the caller is guardian of",
	Action: myVaultsAction,
}

func setManagerAction(ctx *cli.Context) error {
	return callAndPrint(
		http.MethodPut, "/v1/manager",
		map[string]string{"manager": ctx.String("manager")},
	)
}

func registerAction(ctx *cli.Context) error {
	invites, err := parseInvites(ctx.StringSlice("guardian"))
	if err != nil {
		return err
	}

	return callAndPrint(
		http.MethodPost, vaultPath(ctx.Uint64("vault"), "guardians"),
		map[string]interface{}{
			"owner":     ctx.String("owner"),
			"threshold": ctx.Uint64("threshold"),
			"keyId":     ctx.String("key"),
			"guardians": invites,
		},
	)
}

func acceptAction(ctx *cli.Context) error {
	return callAndPrint(http.MethodPost, guardianPath(ctx, "accept"), nil)
}

func submitAction(ctx *cli.Context) error {
	share := []byte(ctx.String("share"))
	if path := ctx.String("file"); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		share = buf
	}
	if len(share) <= 0 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	return callAndPrint(
		http.MethodPost, guardianPath(ctx, "share"),
		map[string][]byte{"share": share},
	)
}

func thresholdAction(ctx *cli.Context) error {
	return callAndPrint(
		http.MethodGet, vaultPath(ctx.Uint64("vault"), "threshold"), nil,
	)
}

func guardiansAction(ctx *cli.Context) error {
	return callAndPrint(
		http.MethodGet, vaultPath(ctx.Uint64("vault"), "guardians"), nil,
	)
}

func guardianAction(ctx *cli.Context) error {
	return callAndPrint(http.MethodGet, guardianPath(ctx), nil)
}

func myVaultsAction(ctx *cli.Context) error {
	return callAndPrint(http.MethodGet, "/v1/guardian/vaults", nil)
}

func callAndPrint(method, path string, body interface{}) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.call(method, path, body)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

// guardianPath addresses the guardian by the hash of its email.
func guardianPath(ctx *cli.Context, elems ...string) string {
	emailHash := hex.EncodeToString(domain.HashEmail(ctx.String("email")))
	return vaultPath(
		ctx.Uint64("vault"), append([]string{"guardians", emailHash}, elems...)...,
	)
}

func parseInvites(args []string) ([]domain.GuardianInvite, error) {
	invites := make([]domain.GuardianInvite, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid guardian %q, must be <email>:<alias>", arg)
		}
		invites = append(invites, domain.GuardianInvite{
			Email: parts[0],
			Alias: parts[1],
		})
	}
	return invites, nil
}
