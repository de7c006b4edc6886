// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tjsasakifln/PNCP-poc-sub006/internal/brdate"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/busca"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/progress"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/reliability"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/salvas"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/setores"
	"github.com/tjsasakifln/PNCP-poc-sub006/internal/track"
	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

var buscarCmd = &cobra.Command{
	Use:   "buscar",
	Short: "Search procurement opportunities for a sector and date range",
	Long: `Buscar runs a search against the backend and renders live progress while
it executes. Dates default to the last 7 days in Brasília time. Transient
backend failures retry automatically after a countdown; permanent failures
print a diagnostic block suitable for a support ticket.`,
	RunE: runBuscar,
}

func init() {
	buscarCmd.Flags().String("setor", "", "sector ID (see 'smartlic setores')")
	buscarCmd.Flags().StringSlice("uf", nil, "state codes to search (comma-separated; default all)")
	buscarCmd.Flags().String("termo", "", "free-text keyword filter")
	buscarCmd.Flags().String("de", "", "start date, YYYY-MM-DD (default: 7 days ago, BRT)")
	buscarCmd.Flags().String("ate", "", "end date, YYYY-MM-DD (default: today, BRT)")
	buscarCmd.Flags().Bool("json", false, "output the result as JSON")
	buscarCmd.Flags().Bool("poll", false, "poll for progress instead of streaming")
	buscarCmd.Flags().Bool("no-progress", false, "disable the live progress channel")
	buscarCmd.Flags().String("salvar", "", "save these parameters under the given name")
	buscarCmd.Flags().String("excel", "", "download the Excel artifact to this path when available")
	buscarCmd.MarkFlagRequired("setor")

	rootCmd.AddCommand(buscarCmd)
}

func runBuscar(cmd *cobra.Command, args []string) error {
	cfg := clientConfig(cmd)
	logger := newLogger(cmd)
	token := apiToken(cmd)
	ctx := cmd.Context()

	params, err := buscarParams(cmd)
	if err != nil {
		return err
	}

	// Resolve the sector name through the cache; an unknown ID is sent
	// anyway since the backend list may be newer than ours.
	cache := setores.New(cfg.Setores, nil, setores.FileStorage{Path: cfg.Setores.CachePath}, logger)
	cache.Load(ctx)
	defer cache.Stop()
	sectorName := params.Setor
	for _, s := range cache.Snapshot().Sectors {
		if s.ID == params.Setor {
			sectorName = s.Nome
			break
		}
	}

	tracker := track.New(cfg.Track, nil, logger)
	defer tracker.Close()
	tracker.Track("busca_realizada", map[string]any{
		"setor": params.Setor,
		"ufs":   len(params.UFs),
	})

	client := busca.NewClient(cfg.Busca, nil)
	client.Token = token

	transport := buscarTransport(cmd, cfg, token)
	orch := busca.NewOrchestrator(client, transport, cfg.Busca, cfg.Progress, logger)
	defer orch.Close()

	updates := make(chan busca.ViewState, 64)
	orch.OnChange(func(s busca.ViewState) {
		select {
		case updates <- s:
		default:
		}
	})

	fmt.Fprintf(os.Stderr, "Buscando %s (%s a %s)...\n", sectorName, params.DataInicial, params.DataFinal)
	orch.Buscar(ctx, params)

	final, err := renderProgress(ctx, os.Stderr, orch, updates, cfg.Busca.Overtime, searchEstimate(len(params.UFs)))
	if err != nil {
		return err
	}

	if final.Err != nil {
		fmt.Fprintf(os.Stderr, "\nErro: %s\n", final.Err.Message)
		fmt.Fprintf(os.Stderr, "\nDiagnóstico (copie este bloco ao abrir um chamado):\n%s\n", final.Err.Report())
		return fmt.Errorf("busca falhou")
	}

	result := final.Result
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		renderResult(os.Stdout, result)
	}

	if path, _ := cmd.Flags().GetString("excel"); path != "" {
		if result.DownloadURL == "" {
			fmt.Fprintln(os.Stderr, "Planilha Excel indisponível para esta busca.")
		} else if err := downloadArtifact(ctx, result.DownloadURL, path); err != nil {
			fmt.Fprintf(os.Stderr, "Falha ao baixar a planilha: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Planilha salva em %s\n", path)
		}
	}

	if nome, _ := cmd.Flags().GetString("salvar"); nome != "" {
		if err := saveSearch(ctx, cfg.Salvas, nome, params); err != nil {
			return err
		}
		tracker.Track("busca_salva", map[string]any{"nome": nome})
		fmt.Fprintf(os.Stderr, "Busca salva como %q.\n", nome)
	}

	return nil
}

// buscarParams assembles search parameters from flags, filling date defaults
// in Brasília time so the window never drifts with the local timezone.
func buscarParams(cmd *cobra.Command) (types.SearchParams, error) {
	setor, _ := cmd.Flags().GetString("setor")
	ufs, _ := cmd.Flags().GetStringSlice("uf")
	termo, _ := cmd.Flags().GetString("termo")
	de, _ := cmd.Flags().GetString("de")
	ate, _ := cmd.Flags().GetString("ate")

	if ate == "" {
		ate = brdate.Today()
	}
	if de == "" {
		var err error
		de, err = brdate.AddDays(ate, -7)
		if err != nil {
			return types.SearchParams{}, fmt.Errorf("invalid --ate date %q: %w", ate, err)
		}
	}
	// Validate both dates up front; AddDays(_, 0) is a pure format check.
	for flag, d := range map[string]string{"--de": de, "--ate": ate} {
		if _, err := brdate.AddDays(d, 0); err != nil {
			return types.SearchParams{}, fmt.Errorf("invalid %s date %q: use YYYY-MM-DD", flag, d)
		}
	}

	for i, uf := range ufs {
		ufs[i] = strings.ToUpper(strings.TrimSpace(uf))
	}

	return types.SearchParams{
		SearchID:    uuid.NewString(),
		Setor:       setor,
		UFs:         ufs,
		Termo:       termo,
		DataInicial: de,
		DataFinal:   ate,
	}, nil
}

// buscarTransport picks the progress transport: nil (disabled), polling, or
// the default event stream.
func buscarTransport(cmd *cobra.Command, cfg types.ClientConfig, token string) progress.Transport {
	if off, _ := cmd.Flags().GetBool("no-progress"); off {
		return nil
	}
	if poll, _ := cmd.Flags().GetBool("poll"); poll {
		return progress.PollTransport{
			BaseURL:   cfg.Busca.BaseURL,
			Token:     token,
			Interval:  cfg.Progress.PollInterval,
			UserAgent: cfg.Busca.UserAgent,
		}
	}
	return progress.SSETransport{
		BaseURL:   cfg.Busca.BaseURL,
		Token:     token,
		UserAgent: cfg.Busca.UserAgent,
	}
}

// renderProgress drains view-state updates until the search settles,
// printing progress lines and overtime reassurance to w.
func renderProgress(ctx context.Context, w io.Writer, orch *busca.Orchestrator, updates <-chan busca.ViewState, overtime types.OvertimeConfig, estimate time.Duration) (busca.ViewState, error) {
	start := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastLine string
	var lastOvertime string
	emit := func(line string) {
		if line != "" && line != lastLine {
			fmt.Fprintln(w, "  "+line)
			lastLine = line
		}
	}

	for {
		select {
		case <-ctx.Done():
			return busca.ViewState{}, ctx.Err()
		case <-ticker.C:
			// Updates can be dropped under load; the poll here guarantees a
			// settled search is always noticed.
			if s := orch.State(); s.Settled() {
				return s, nil
			}
			msg := busca.OvertimeMessage(time.Since(start), estimate, 0, overtime)
			if msg != "" && msg != lastOvertime {
				fmt.Fprintln(w, "  "+msg)
				lastOvertime = msg
			}
		case s := <-updates:
			if s.Settled() {
				return s, nil
			}
			line := s.LoadingStep
			if s.Percent > 0 {
				line = fmt.Sprintf("[%3d%%] %s", s.Percent, s.LoadingStep)
			}
			if s.StatesProcessed > 0 {
				line += fmt.Sprintf(" (%d estados)", s.StatesProcessed)
			}
			if s.RetryCountdown >= 0 {
				line = fmt.Sprintf("Falha temporária. Nova tentativa em %ds...", s.RetryCountdown)
			}
			emit(line)
		}
	}
}

// renderResult prints the result table with its reliability badge.
func renderResult(w io.Writer, r *types.SearchResult) {
	score := resultScore(r)
	fmt.Fprintf(w, "%d oportunidade(s) encontrada(s)  [confiabilidade: %s (%.2f)]\n\n",
		r.Total, score.Level, score.Score)

	if r.Resumo != "" {
		fmt.Fprintf(w, "Resumo: %s\n\n", r.Resumo)
	}

	if len(r.Licitacoes) > 0 {
		fmt.Fprintf(w, "%-4s  %-2s  %-30s  %-45s  %12s\n", "#", "UF", "Órgão", "Objeto", "Valor (R$)")
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for i, l := range r.Licitacoes {
			orgao := truncate(l.Orgao, 30)
			objeto := truncate(l.Objeto, 45)
			valor := "-"
			if l.ValorEstimado > 0 {
				valor = fmt.Sprintf("%.2f", l.ValorEstimado)
			}
			fmt.Fprintf(w, "%-4d  %-2s  %-30s  %-45s  %12s\n", i+1, l.UF, orgao, objeto, valor)
		}
		fmt.Fprintln(w)
	}

	if r.IsPartial {
		fmt.Fprintln(w, "Atenção: resultado parcial, nem todas as fontes responderam.")
		for _, st := range r.SourceStats {
			if !st.Sucesso {
				fmt.Fprintf(w, "  - %s indisponível: %s\n", st.Fonte, st.Erro)
			}
		}
	}
}

// resultScore derives the displayed reliability from source coverage and
// the retrieval method. Live results have zero age.
func resultScore(r *types.SearchResult) reliability.Score {
	coverage := 100.0
	if len(r.SourceStats) > 0 {
		ok := 0
		for _, st := range r.SourceStats {
			if st.Sucesso {
				ok++
			}
		}
		coverage = 100 * float64(ok) / float64(len(r.SourceStats))
	}

	state := ""
	if r.Cached {
		state = "cached"
	}
	method := reliability.DeriveMethod(state, "fresh")

	age := 0.0
	if r.Cached {
		// Cached result ages are not reported; assume one TTL window.
		age = 5
	}
	return reliability.Calculate(coverage, age, method)
}

func saveSearch(ctx context.Context, cfg types.SalvasConfig, nome string, params types.SearchParams) error {
	store, err := salvas.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Save(ctx, nome, params)
	return err
}

func downloadArtifact(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
