package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/thresholdvault/vault-daemon/internal/core/application"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/internal/infrastructure/explorer/esplora"
	"github.com/thresholdvault/vault-daemon/pkg/wallet"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// HTTPListeningPortKey is the port where the HTTP interface will listen on
	HTTPListeningPortKey = "HTTP_LISTENING_PORT"
	// NetworkKey is the bitcoin network to use. One of mainnet, testnet,
	// regtest or signet
	NetworkKey = "NETWORK"
	// ExplorerURLKey is the endpoint where the Esplora REST API is listening.
	// Defaults to a public instance for the configured network
	ExplorerURLKey = "EXPLORER_URL"
	// ExplorerRequestTimeoutKey are the milliseconds to wait for HTTP responses before timeouts
	ExplorerRequestTimeoutKey = "EXPLORER_REQUEST_TIMEOUT"
	// ExplorerRateLimitKey is the max number of requests per second made to
	// the explorer
	ExplorerRateLimitKey = "EXPLORER_RATE_LIMIT"
	// AuthSecretKey is the HMAC secret used to verify caller tokens
	AuthSecretKey = "AUTH_SECRET"
	// ControllersKey is the comma separated list of identities allowed to
	// set the vault manager
	ControllersKey = "CONTROLLERS"
	// OracleSeedKey is the hex encoded seed of the local signing and key
	// derivation oracles. If not set, a random one is generated and stored
	// in the datadir
	OracleSeedKey = "ORACLE_SEED"
	// DBTypeKey is the type of snapshot store, either badger or inmemory
	DBTypeKey = "DB_TYPE"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// SnapshotIntervalKey defines interval in seconds for persisting the
	// state of the services, 0 persists only at shutdown
	SnapshotIntervalKey = "SNAPSHOT_INTERVAL"
	// StatsIntervalKey defines interval in seconds for printing basic
	// statistics, 0 disables them
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation         = "db"
	StatsLocation      = "stats"
	OracleSeedLocation = "oracle.seed"

	oracleSeedLen    = 32
	maxOracleSeedLen = 64
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("vaultd", false)

var defaultExplorerURLs = map[string]string{
	wallet.NetworkMainnet: "https://blockstream.info/api",
	wallet.NetworkTestnet: "https://blockstream.info/testnet/api",
	wallet.NetworkSignet:  "https://mempool.space/signet/api",
	wallet.NetworkRegtest: "http://localhost:3000",
}

// InitConfig loads the configuration from env, validates it and prepares the
// datadir.
func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("VAULT")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(HTTPListeningPortKey, 8080)
	vip.SetDefault(NetworkKey, wallet.NetworkTestnet)
	vip.SetDefault(ExplorerRequestTimeoutKey, 15000)
	vip.SetDefault(ExplorerRateLimitKey, esplora.DefaultRequestsPerSecond)
	vip.SetDefault(DBTypeKey, application.DBBadger)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(SnapshotIntervalKey, 60)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := initDatadir(); err != nil {
		return fmt.Errorf("failed to create datadir: %w", err)
	}
	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetDuration interprets the value of key as a number of the given unit.
func GetDuration(key string, unit time.Duration) time.Duration {
	return time.Duration(vip.GetInt64(key)) * unit
}

// GetLogLevel ...
func GetLogLevel() log.Level {
	return log.Level(GetInt(LogLevelKey))
}

func GetNetwork() string {
	return GetString(NetworkKey)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDir ...
func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetStatsDir is where periodic statistics are dumped.
func GetStatsDir() string {
	return filepath.Join(GetDatadir(), StatsLocation)
}

// GetListeningAddress ...
func GetListeningAddress() string {
	return fmt.Sprintf(":%d", GetInt(HTTPListeningPortKey))
}

// GetAuthSecret ...
func GetAuthSecret() []byte {
	return []byte(GetString(AuthSecretKey))
}

// GetControllers returns the identities allowed to set the vault manager.
func GetControllers() []string {
	controllers := make([]string, 0)
	for _, c := range strings.Split(GetString(ControllersKey), ",") {
		if c = strings.TrimSpace(c); c != "" {
			controllers = append(controllers, c)
		}
	}
	return controllers
}

// GetExplorerURL returns the configured explorer endpoint or the default one
// for the network.
func GetExplorerURL() string {
	if u := GetString(ExplorerURLKey); u != "" {
		return u
	}
	return defaultExplorerURLs[GetNetwork()]
}

// GetExplorer connects to the configured Esplora instance.
func GetExplorer() (ports.BitcoinOracle, error) {
	return esplora.NewService(esplora.Config{
		APIURL:            GetExplorerURL(),
		Network:           GetNetwork(),
		RequestTimeout:    GetDuration(ExplorerRequestTimeoutKey, time.Millisecond),
		RequestsPerSecond: GetInt(ExplorerRateLimitKey),
	})
}

// GetOracleSeed returns the seed of the local oracles. Unless given via env,
// it's read from the datadir or generated there on first run.
func GetOracleSeed() ([]byte, error) {
	if s := GetString(OracleSeedKey); s != "" {
		return hex.DecodeString(s)
	}

	seedFile := filepath.Join(GetDatadir(), OracleSeedLocation)
	buf, err := os.ReadFile(seedFile)
	if err == nil {
		return hex.DecodeString(strings.TrimSpace(string(buf)))
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	seed := make([]byte, oracleSeedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	if err := os.WriteFile(
		seedFile, []byte(hex.EncodeToString(seed)), 0600,
	); err != nil {
		return nil, err
	}
	log.Infof("generated new oracle seed in %s", seedFile)
	return seed, nil
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if level := GetInt(LogLevelKey); level < 0 || level > int(log.TraceLevel) {
		return fmt.Errorf("log level must be in range [0, %d]", log.TraceLevel)
	}

	port := GetInt(HTTPListeningPortKey)
	if port <= 0 || port > 65535 {
		return fmt.Errorf("http listening port must be in range [1, 65535]")
	}

	if _, err := wallet.NetworkFromString(GetNetwork()); err != nil {
		return fmt.Errorf(
			"network must be one of '%s', '%s', '%s' or '%s'",
			wallet.NetworkMainnet, wallet.NetworkTestnet,
			wallet.NetworkRegtest, wallet.NetworkSignet,
		)
	}

	explorerURL := GetExplorerURL()
	if explorerURL == "" {
		return fmt.Errorf("explorer url must not be null")
	}
	if _, err := url.ParseRequestURI(explorerURL); err != nil {
		return fmt.Errorf("explorer url is not a valid url: %s", err)
	}
	if GetInt(ExplorerRequestTimeoutKey) <= 0 {
		return fmt.Errorf("explorer request timeout must be a positive number")
	}
	if GetInt(ExplorerRateLimitKey) <= 0 {
		return fmt.Errorf("explorer rate limit must be a positive number")
	}

	if len(GetAuthSecret()) <= 0 {
		return fmt.Errorf("auth secret must not be null")
	}

	if s := GetString(OracleSeedKey); s != "" {
		seed, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("oracle seed must be in hex format")
		}
		if len(seed) < oracleSeedLen || len(seed) > maxOracleSeedLen {
			return fmt.Errorf(
				"oracle seed must be between %d and %d bytes",
				oracleSeedLen, maxOracleSeedLen,
			)
		}
	}

	if _, ok := application.SupportedDBType[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf("db type must be either '%s' or '%s'",
			application.DBBadger, application.DBInMemory,
		)
	}

	if GetInt(SnapshotIntervalKey) < 0 {
		return fmt.Errorf("snapshot interval must not be a negative number")
	}
	if GetInt(StatsIntervalKey) < 0 {
		return fmt.Errorf("stats interval must not be a negative number")
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	if GetString(DBTypeKey) == application.DBBadger {
		if err := makeDirectoryIfNotExists(GetDbDir()); err != nil {
			return err
		}
	}

	if GetInt(StatsIntervalKey) > 0 {
		if err := makeDirectoryIfNotExists(GetStatsDir()); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
