package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf"
	"github.com/privacybydesign/ppoprf/randsrv"
	"github.com/privacybydesign/ppoprf/signed"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	logger  = logrus.New()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ppoprf-server",
	Short: "Serve epoch-based randomness from a puncturable partially-oblivious PRF",
	Long: `ppoprf-server evaluates blinded points for clients under the metadata tag
of the current epoch. At the end of every epoch its tag is punctured from the
server key, after which randomness for that epoch can no longer be computed.`,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := configFromViper()
		if err != nil {
			return err
		}
		s, err := randsrv.New(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return s.Run(ctx)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ppoprf-server.yaml if present)")
	RootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")

	flags := RootCmd.Flags()
	flags.String("listen", randsrv.DefaultListenAddr, "address to listen on")
	flags.Duration("epoch-duration", randsrv.DefaultEpochDuration, "duration of an epoch")
	flags.Uint8("first-epoch", randsrv.DefaultFirstEpoch, "first epoch of a key")
	flags.Uint8("last-epoch", randsrv.DefaultLastEpoch, "last epoch of a key, after which the key is rotated")
	flags.Int("max-points", randsrv.DefaultMaxPoints, "maximum number of points per request")
	flags.String("signing-key", "", "path to a PEM encoded ECDSA P-256 key to sign the public key with")

	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		logger.Fatal(err)
	}
	if err := viper.BindPFlags(flags); err != nil {
		logger.Fatal(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("ppoprf")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logger.Fatalf("Failed reading config file %s: %v", viper.ConfigFileUsed(), err)
		}
	} else {
		viper.SetConfigName("ppoprf-server")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err == nil {
			logger.Info("Using config file: ", viper.ConfigFileUsed())
		}
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.WrapPrefix(err, "invalid log level", 0)
	}
	logger.SetLevel(lvl)
	ppoprf.SetLogger(logger)
	randsrv.Logger = logger
	return nil
}

func configFromViper() (randsrv.Config, error) {
	cfg := randsrv.Config{
		ListenAddr:    viper.GetString("listen"),
		EpochDuration: viper.GetDuration("epoch-duration"),
		FirstEpoch:    uint8(viper.GetUint("first-epoch")),
		LastEpoch:     uint8(viper.GetUint("last-epoch")),
		MaxPoints:     viper.GetInt("max-points"),
	}
	if first, last := viper.GetUint("first-epoch"), viper.GetUint("last-epoch"); first > 255 || last > 255 {
		return cfg, errors.Errorf("epochs must be at most 255, got %d and %d", first, last)
	}
	if path := viper.GetString("signing-key"); path != "" {
		bts, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.WrapPrefix(err, "failed to read signing key", 0)
		}
		if cfg.SigningKey, err = signed.UnmarshalPemPrivateKey(bts); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
