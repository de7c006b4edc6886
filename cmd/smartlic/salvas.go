// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/salvas"
)

var salvasCmd = &cobra.Command{
	Use:   "salvas",
	Short: "Manage saved searches (list, save, remove, export)",
	Long: `Salvas manages the locally stored search parameter sets. At most 10
searches can be kept; remove one to make room when the limit is reached.`,
}

var salvasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches in insertion order",
	RunE:  runSalvasList,
}

var salvasSaveCmd = &cobra.Command{
	Use:   "save [nome]",
	Short: "Save a search parameter set under a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSalvasSave,
}

var salvasRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a saved search by its ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runSalvasRemove,
}

var salvasExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export saved searches as YAML",
	RunE:  runSalvasExport,
}

func init() {
	salvasSaveCmd.Flags().String("setor", "", "sector ID")
	salvasSaveCmd.Flags().StringSlice("uf", nil, "state codes (comma-separated)")
	salvasSaveCmd.Flags().String("termo", "", "free-text keyword filter")
	salvasSaveCmd.Flags().String("de", "", "start date, YYYY-MM-DD")
	salvasSaveCmd.Flags().String("ate", "", "end date, YYYY-MM-DD")
	salvasSaveCmd.MarkFlagRequired("setor")

	salvasCmd.AddCommand(salvasListCmd)
	salvasCmd.AddCommand(salvasSaveCmd)
	salvasCmd.AddCommand(salvasRemoveCmd)
	salvasCmd.AddCommand(salvasExportCmd)

	rootCmd.AddCommand(salvasCmd)
}

func openStore(cmd *cobra.Command) (*salvas.Store, error) {
	return salvas.NewStore(clientConfig(cmd).Salvas)
}

func runSalvasList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("Nenhuma busca salva.")
		return nil
	}

	fmt.Printf("%-4s  %-20s  %-16s  %-22s  %s\n", "ID", "Nome", "Setor", "Período", "UFs")
	fmt.Println(strings.Repeat("-", 80))
	for _, s := range list {
		ufs := "todas"
		if len(s.Params.UFs) > 0 {
			ufs = strings.Join(s.Params.UFs, ",")
		}
		periodo := s.Params.DataInicial + " a " + s.Params.DataFinal
		fmt.Printf("%-4d  %-20s  %-16s  %-22s  %s\n", s.ID, s.Nome, s.Params.Setor, periodo, ufs)
	}
	return nil
}

func runSalvasSave(cmd *cobra.Command, args []string) error {
	params, err := buscarParams(cmd)
	if err != nil {
		return err
	}
	// The correlation ID belongs to a search execution, not to the saved set.
	params.SearchID = ""

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	saved, err := store.Save(cmd.Context(), args[0], params)
	if errors.Is(err, salvas.ErrCapacity) {
		return fmt.Errorf("limite de %d buscas salvas atingido; remova uma com 'smartlic salvas remove'", clientConfig(cmd).Salvas.Max)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Busca %q salva com ID %d.\n", saved.Nome, saved.ID)
	return nil
}

func runSalvasRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %q", args[0])
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Remove(cmd.Context(), id); err != nil {
		if errors.Is(err, salvas.ErrNotFound) {
			return fmt.Errorf("busca salva %d não encontrada", id)
		}
		return err
	}
	fmt.Printf("Busca salva %d removida.\n", id)
	return nil
}

func runSalvasExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.ExportYAML(cmd.Context(), os.Stdout)
}
