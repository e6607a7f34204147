package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var (
	vaultFlag = cli.Uint64Flag{
		Name:     "vault",
		Usage:    "the id of the vault",
		Required: true,
	}

	keyFlag = cli.StringFlag{
		Name:     "key",
		Usage:    "the key reference of the vault",
		Required: true,
	}

	satsPerBtc = decimal.NewFromInt(1e8)
	hundred    = decimal.NewFromInt(100)
)

var address = cli.Command{
	Name:   "address",
	Usage:  "get or derive the deposit address of a vault",
	Flags:  []cli.Flag{&vaultFlag, &keyFlag},
	Action: addressAction,
}

var walletCmd = cli.Command{
	Name:   "wallet",
	Usage:  "show the deposit address of a vault, if derived",
	Flags:  []cli.Flag{&vaultFlag},
	Action: walletAction,
}

var inherit = cli.Command{
	Name:  "inherit",
	Usage: "sweep the funds of a vault to its heirs",
	Flags: []cli.Flag{
		&vaultFlag,
		&keyFlag,
		&cli.StringSliceFlag{
			Name:     "heir",
			Usage:    "<address>:<weight> with weight in percent, repeat for each heir",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "submissions",
			Usage: "the number of guardian shares submitted for the vault",
		},
	},
	Action: inheritAction,
}

func addressAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.call(
		http.MethodPost, vaultPath(ctx.Uint64("vault"), "address"),
		map[string]string{"keyId": ctx.String("key")},
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func walletAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.call(
		http.MethodGet, vaultPath(ctx.Uint64("vault"), "address"), nil,
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)
	return nil
}

func inheritAction(ctx *cli.Context) error {
	heirs, err := parseHeirs(ctx.StringSlice("heir"))
	if err != nil {
		return err
	}

	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	resp, err := client.call(
		http.MethodPost, vaultPath(ctx.Uint64("vault"), "inheritance"),
		map[string]interface{}{
			"keyId":               ctx.String("key"),
			"heirs":               heirs,
			"guardianSubmissions": ctx.Uint64("submissions"),
		},
	)
	if err != nil {
		return err
	}

	printRespJSON(resp)

	var receipt application.InheritanceReceipt
	if err := json.Unmarshal([]byte(resp), &receipt); err != nil {
		return err
	}
	fmt.Printf("\nbroadcasted %s\n", receipt.TxID)
	fmt.Printf("swept %s BTC, fee %s BTC\n", formatBtc(receipt.Total), formatBtc(receipt.Fee))
	for _, p := range receipt.Payouts {
		fmt.Printf("  %s: %s BTC\n", p.Address, formatBtc(p.Amount))
	}
	return nil
}

// parseHeirs turns <address>:<percent> pairs into heir records with weights
// in basis points.
func parseHeirs(args []string) ([]domain.HeirRecord, error) {
	heirs := make([]domain.HeirRecord, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, ":")
		if i <= 0 {
			return nil, fmt.Errorf("invalid heir %q, must be <address>:<weight>", arg)
		}
		addr, weight := arg[:i], arg[i+1:]

		percent, err := decimal.NewFromString(weight)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %s", weight, err)
		}
		bps := percent.Mul(hundred)
		if bps.IsNegative() || !bps.Equal(bps.Truncate(0)) {
			return nil, fmt.Errorf(
				"invalid weight %q, must be a positive percentage with at most 2 decimals",
				weight,
			)
		}
		heirs = append(heirs, domain.HeirRecord{
			Address:   addr,
			WeightBps: uint64(bps.IntPart()),
		})
	}
	return heirs, nil
}

func formatBtc(sats uint64) string {
	return decimal.NewFromInt(int64(sats)).Div(satsPerBtc).StringFixed(8)
}

func vaultPath(vaultID uint64, elems ...string) string {
	return fmt.Sprintf("/v1/vaults/%d/%s", vaultID, strings.Join(elems, "/"))
}
