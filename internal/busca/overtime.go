// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package busca

import (
	"fmt"
	"time"

	"github.com/tjsasakifln/PNCP-poc-sub006/pkg/types"
)

// OvertimeMessage returns the reassurance copy for a search running past
// its estimate, or "" while within it. The output is deterministic in the
// elapsed time, the estimate, and the source count; the tier boundaries
// come from configuration.
func OvertimeMessage(elapsed, estimate time.Duration, sources int, cfg types.OvertimeConfig) string {
	overrun := elapsed - estimate
	if overrun <= 0 {
		return ""
	}

	pastCancelCutoff := overrun >= cfg.SourceAware
	if cfg.CancelFactor > 0 && estimate > 0 {
		cutoff := time.Duration(float64(estimate) * cfg.CancelFactor)
		if elapsed >= cutoff {
			pastCancelCutoff = true
		}
	}

	switch {
	case pastCancelCutoff:
		return "A busca está demorando bem mais que o normal. Você pode cancelar e tentar novamente."
	case overrun >= cfg.StillWorking:
		if sources > 0 {
			return fmt.Sprintf("Ainda consultando %d fontes de dados. Buscas amplas levam mais tempo.", sources)
		}
		return "Ainda consultando as fontes de dados. Buscas amplas levam mais tempo."
	case overrun >= cfg.AlmostDone:
		return "Ainda trabalhando na sua busca, aguarde mais um pouco..."
	default:
		return "Quase pronto, finalizando a análise..."
	}
}
