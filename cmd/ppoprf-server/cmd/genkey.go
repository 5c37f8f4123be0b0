package cmd

import (
	"os"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ppoprf/signed"
	"github.com/spf13/cobra"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey <private key file> <public key file>",
	Short: "Generate an ECDSA P-256 key pair for signing the server public key",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return generateSigningKey(args[0], args[1])
	},
}

func init() {
	RootCmd.AddCommand(genkeyCmd)
}

func generateSigningKey(privatePath, publicPath string) error {
	sk, err := signed.GenerateKey()
	if err != nil {
		return err
	}
	skPem, err := signed.MarshalPemPrivateKey(sk)
	if err != nil {
		return err
	}
	pkPem, err := signed.MarshalPemPublicKey(&sk.PublicKey)
	if err != nil {
		return err
	}
	if err = os.WriteFile(privatePath, skPem, 0600); err != nil {
		return errors.WrapPrefix(err, "failed to write private key", 0)
	}
	if err = os.WriteFile(publicPath, pkPem, 0644); err != nil {
		return errors.WrapPrefix(err, "failed to write public key", 0)
	}
	logger.WithField("path", privatePath).Info("wrote signing key")
	return nil
}
