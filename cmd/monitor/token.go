package main

import (
	"fmt"

	"project-pulse/config"
	"project-pulse/internals/security"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenEmail   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the run trigger API",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "operator identity recorded with each triggered run")
	tokenCmd.Flags().StringVar(&tokenRole, "role", security.RoleOperator, "role claim (operator or viewer)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "optional email claim")
	tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ts, err := security.NewTokenService(&cfg.Auth)
	if err != nil {
		return err
	}

	tok, err := ts.GenerateAccessToken(security.RequestClaims{
		Email:            tokenEmail,
		Role:             tokenRole,
		RegisteredClaims: jwt.RegisteredClaims{Subject: tokenSubject},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
