// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ArtifactStatus reports the availability of a result sub-artifact
// (AI summary, Excel export).
type ArtifactStatus string

const (
	ArtifactReady      ArtifactStatus = "ready"
	ArtifactProcessing ArtifactStatus = "processing"
	ArtifactSkipped    ArtifactStatus = "skipped"
	ArtifactFailed     ArtifactStatus = "failed"
)

// Licitacao is one procurement opportunity returned by a search.
type Licitacao struct {
	ID               string  `json:"id"`
	Orgao            string  `json:"orgao"`
	Objeto           string  `json:"objeto"`
	UF               string  `json:"uf"`
	Municipio        string  `json:"municipio,omitempty"`
	Modalidade       string  `json:"modalidade,omitempty"`
	ValorEstimado    float64 `json:"valor_estimado,omitempty"`
	DataEncerramento string  `json:"data_encerramento,omitempty"`
	Fonte            string  `json:"fonte,omitempty"`
	Link             string  `json:"link,omitempty"`
}

// SourceStat reports how one upstream source fared during a search.
type SourceStat struct {
	Fonte   string `json:"fonte"`
	Total   int    `json:"total"`
	Sucesso bool   `json:"sucesso"`
	Erro    string `json:"erro,omitempty"`
}

// SearchResult is the authoritative outcome of a search. Once received it
// prevails over any in-flight progress state.
type SearchResult struct {
	SearchID    string         `json:"search_id,omitempty"`
	Licitacoes  []Licitacao    `json:"licitacoes"`
	Total       int            `json:"total"`
	Resumo      string         `json:"resumo,omitempty"`
	LLMStatus   ArtifactStatus `json:"llm_status,omitempty"`
	ExcelStatus ArtifactStatus `json:"excel_status,omitempty"`
	DownloadURL string         `json:"download_url,omitempty"`
	SourcesUsed []string       `json:"sources_used,omitempty"`
	SourceStats []SourceStat   `json:"source_stats,omitempty"`
	IsPartial   bool           `json:"is_partial"`
	Cached      bool           `json:"cached"`
}

// SearchParams holds the user-supplied search parameters.
type SearchParams struct {
	// SearchID is a client-generated identifier used to correlate the
	// progress stream with the search request.
	SearchID string `json:"search_id,omitempty" yaml:"search_id,omitempty"`

	Setor       string   `json:"setor" yaml:"setor"`
	UFs         []string `json:"ufs,omitempty" yaml:"ufs,omitempty"`
	Termo       string   `json:"termo,omitempty" yaml:"termo,omitempty"`
	DataInicial string   `json:"data_inicial" yaml:"data_inicial"`
	DataFinal   string   `json:"data_final" yaml:"data_final"`
}

// Sector is one entry of the sector reference list.
type Sector struct {
	ID   string `json:"id"`
	Nome string `json:"nome"`
}

// SavedSearch is one persisted search parameter set.
type SavedSearch struct {
	ID        int64        `json:"id" yaml:"id"`
	Nome      string       `json:"nome" yaml:"nome"`
	Params    SearchParams `json:"params" yaml:"params"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}
