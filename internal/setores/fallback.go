// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package setores

import "github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"

// fallbackSetores is the last-resort sector list, served only when the
// network is unreachable and no cache entry of any age exists. It mirrors
// the backend's canonical list and must be kept non-empty.
var fallbackSetores = []types.Sector{
	{ID: "alimentacao", Nome: "Alimentação e Merenda"},
	{ID: "construcao-civil", Nome: "Construção Civil e Obras"},
	{ID: "consultoria", Nome: "Consultoria e Assessoria"},
	{ID: "educacao", Nome: "Educação e Material Didático"},
	{ID: "engenharia", Nome: "Engenharia e Projetos"},
	{ID: "equipamentos-medicos", Nome: "Equipamentos Médico-Hospitalares"},
	{ID: "eventos", Nome: "Eventos e Publicidade"},
	{ID: "limpeza", Nome: "Limpeza e Conservação"},
	{ID: "manutencao", Nome: "Manutenção Predial"},
	{ID: "mobiliario", Nome: "Mobiliário e Escritório"},
	{ID: "saude", Nome: "Saúde e Medicamentos"},
	{ID: "seguranca", Nome: "Segurança e Vigilância"},
	{ID: "ti", Nome: "Tecnologia da Informação"},
	{ID: "transporte", Nome: "Transporte e Frota"},
	{ID: "vestuario", Nome: "Vestuário e Uniformes"},
}

// Fallback returns a copy of the hardcoded sector list.
func Fallback() []types.Sector {
	out := make([]types.Sector, len(fallbackSetores))
	copy(out, fallbackSetores)
	return out
}
