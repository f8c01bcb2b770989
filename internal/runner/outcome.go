package runner

import (
	"github.com/seantiz/stoker/internal/backend"
	"github.com/seantiz/stoker/internal/metrics"
)

// Outcome is the terminal classification of one dispatched operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeException
	OutcomeTimeout
	OutcomeRateLimited
	OutcomeBackendTimeout
)

// label returns the metrics label value for the outcome.
func (o Outcome) label() string {
	switch o {
	case OutcomeSuccess:
		return metrics.OutcomeOK
	case OutcomeTimeout:
		return metrics.OutcomeTimeout
	case OutcomeRateLimited:
		return metrics.OutcomeRateLimited
	case OutcomeBackendTimeout:
		return metrics.OutcomeBackendTimeout
	default:
		return metrics.OutcomeException
	}
}

// classifyError maps a tagged backend error onto an outcome. The two special
// kinds are kept apart from the generic exception bucket because they point
// at different causes: admission rejection versus backend overload.
func classifyError(err error) Outcome {
	switch backend.KindOf(err) {
	case backend.KindRateLimited:
		return OutcomeRateLimited
	case backend.KindBackendTimeout:
		return OutcomeBackendTimeout
	default:
		return OutcomeException
	}
}
