// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/sessao"
)

var contaCmd = &cobra.Command{
	Use:   "conta",
	Short: "Account operations (billing portal)",
}

var contaBillingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Print the billing portal URL for this account",
	RunE:  runContaBilling,
}

func init() {
	contaCmd.AddCommand(contaBillingCmd)
	rootCmd.AddCommand(contaCmd)
}

func runContaBilling(cmd *cobra.Command, args []string) error {
	cfg := clientConfig(cmd)
	token := apiToken(cmd)
	if token == "" {
		return fmt.Errorf("no API token: add smartlic-api-token to .secrets/ or pass --token")
	}

	client := sessao.NewClient(cfg.Session, nil, sessao.StaticToken(token))
	url, err := client.BillingPortalURL(cmd.Context())
	if errors.Is(err, sessao.ErrSessionExpired) {
		return fmt.Errorf("sessão expirada: entre novamente em %s", sessao.LoginRedirect)
	}
	if err != nil {
		return err
	}

	fmt.Println(url)
	return nil
}
