package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	httpinterface "github.com/thresholdvault/vault-daemon/internal/interfaces/http"
	"github.com/thresholdvault/vault-daemon/pkg/httputil"
	"github.com/urfave/cli/v2"
)

const tokenTTL = 5 * time.Minute

var (
	vaultDataDir = btcutil.AppDataDir("vault-cli", false)
	statePath    = filepath.Join(vaultDataDir, "state.json")

	requestTimeout = 30 * time.Second
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "vault CLI"
	app.Usage = "Command line interface for vaultd owners, guardians and controllers"
	app.Commands = append(
		app.Commands,
		&config,
		&token,
		&address,
		&walletCmd,
		&inherit,
		&setmanager,
		&register,
		&accept,
		&submit,
		&threshold,
		&guardians,
		&guardian,
		&myvaults,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(vaultDataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(vaultDataDir, os.ModeDir|0755); err != nil {
			return err
		}
	}

	currentData, err := getState()
	if err != nil {
		currentData = map[string]string{}
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string, 0)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printRespJSON(resp string) {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(resp), "", "\t"); err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(out.String())
}

// daemonClient sends authenticated requests to the vaultd HTTP interface.
type daemonClient struct {
	baseURL string
	token   string
	client  *httputil.Client
}

func getDaemonClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	baseURL, ok := state["rpcserver"]
	if !ok {
		return nil, errors.New("set rpcserver with `config set rpcserver`")
	}

	token := state["token"]
	if secret, identity := state["auth_secret"], state["identity"]; secret != "" && identity != "" {
		token, err = httpinterface.NewToken([]byte(secret), identity, tokenTTL)
		if err != nil {
			return nil, err
		}
	}
	if token == "" {
		return nil, errors.New(
			"set either token or auth_secret and identity with `config set`",
		)
	}

	return &daemonClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  httputil.NewClient(requestTimeout),
	}, nil
}

// call sends body, if any, as JSON and returns the raw response body of
// successful requests.
func (c *daemonClient) call(method, path string, body interface{}) (string, error) {
	var reqBody string
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reqBody = string(buf)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.token,
		"Content-Type":  "application/json",
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, resp, err := c.client.NewHTTPRequest(
		ctx, method, c.baseURL+path, reqBody, headers,
	)
	if err != nil {
		return "", fmt.Errorf("unable to connect to vaultd: %w", err)
	}
	if status >= 300 {
		return "", parseErrorResponse(status, resp)
	}
	return resp, nil
}

func parseErrorResponse(status int, resp string) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Aborted bool   `json:"aborted"`
	}
	if err := json.Unmarshal([]byte(resp), &body); err != nil || body.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", status, resp)
	}
	if body.Aborted {
		return fmt.Errorf("%s (%s, call aborted)", body.Message, body.Error)
	}
	return fmt.Errorf("%s (%s)", body.Message, body.Error)
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[vault] %v\n", err)
	}
	os.Exit(1)
}
