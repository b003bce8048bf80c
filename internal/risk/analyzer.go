// Package risk decides which swaps need the owner's explicit approval.
package risk

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
)

// Reasons a swap is parked for approval.
const (
	ReasonSensitive   = "sensitive"
	ReasonQuarantined = "agent_quarantined"
	ReasonThreshold   = "amount_above_threshold"
)

// QuarantineProvider is implemented by engine.QuarantineManager.
type QuarantineProvider interface {
	IsQuarantined(agent common.Address) bool
}

type Analyzer struct {
	quarantine QuarantineProvider
	threshold  uint256.Int
	hasLimit   bool
	logger     *zap.Logger
}

// NewAnalyzer builds an analyzer. A zero threshold disables the amount check;
// quarantine may be nil.
func NewAnalyzer(quarantine QuarantineProvider, threshold uint256.Int, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		quarantine: quarantine,
		threshold:  threshold,
		hasLimit:   !threshold.IsZero(),
		logger:     logger.Named("analyzer"),
	}
}

// IsRequired reports whether req must wait for approval, and why.
func (a *Analyzer) IsRequired(req domain.SwapRequest) (bool, string) {
	// 1. Caller marked the operation as sensitive
	if req.Sensitive {
		return true, ReasonSensitive
	}

	// 2. Operator put the agent under manual control
	if a.quarantine != nil && a.quarantine.IsQuarantined(req.Agent) {
		return true, ReasonQuarantined
	}

	// 3. Dynamic amount limit
	if a.hasLimit && req.AmountIn.Gt(&a.threshold) {
		a.logger.Warn("dynamic approval triggered",
			zap.String("agent", req.Agent.Hex()),
			zap.String("amount", domain.FormatUnits(req.AmountIn)),
			zap.String("threshold", domain.FormatUnits(a.threshold)),
		)
		return true, ReasonThreshold
	}
	return false, ""
}
