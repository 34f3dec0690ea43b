package agent

import (
	"time"

	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/risk"
	"github.com/songzhibin97/memeflux/internal/trading"
)

// Outcome 一次运行的终止状态
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeNoTokens
	OutcomeNoNarratives
	OutcomeAllSkipped
	OutcomeCapReached
	OutcomeInsufficientFunds
	OutcomeFundingUnavailable
	OutcomeDryRun
	OutcomeCompleted
	OutcomeAllMintsFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoTokens:
		return "no_tokens"
	case OutcomeNoNarratives:
		return "no_narratives"
	case OutcomeAllSkipped:
		return "all_skipped"
	case OutcomeCapReached:
		return "cap_reached"
	case OutcomeInsufficientFunds:
		return "insufficient_funds"
	case OutcomeFundingUnavailable:
		return "funding_unavailable"
	case OutcomeDryRun:
		return "dry_run"
	case OutcomeCompleted:
		return "completed"
	case OutcomeAllMintsFailed:
		return "all_mints_failed"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Describe is the one-line, human readable explanation logged for each outcome.
func (o Outcome) Describe() string {
	switch o {
	case OutcomeNoTokens:
		return "no tokens fetched from market data, nothing to analyze"
	case OutcomeNoNarratives:
		return "no narratives discovered, nothing to mint"
	case OutcomeAllSkipped:
		return "every narrative was a duplicate or below the confidence threshold"
	case OutcomeCapReached:
		return "rolling 24h mint cap reached, minting skipped"
	case OutcomeInsufficientFunds:
		return "wallet balance too low, minting skipped"
	case OutcomeFundingUnavailable:
		return "wallet funding could not be verified, minting skipped"
	case OutcomeDryRun:
		return "dry run, selected narratives were not minted"
	case OutcomeCompleted:
		return "run complete"
	case OutcomeAllMintsFailed:
		return "run complete but every mint failed"
	default:
		return "run ended in an unknown state"
	}
}

// MintFailure 单个叙事铸造失败
type MintFailure struct {
	Narrative models.DiscoveredNarrative `json:"narrative"`
	Error     string                     `json:"error"`
}

type Result struct {
	RunID   string  `json:"run_id"`
	Outcome Outcome `json:"outcome"`

	Tokens         int                          `json:"tokens"`
	Narratives     []models.DiscoveredNarrative `json:"narratives"`
	OracleError    string                       `json:"oracle_error,omitempty"`
	Classification risk.Classification          `json:"classification"`
	Selection      risk.Selection               `json:"selection"`
	Funding        *trading.FundingStatus       `json:"funding,omitempty"`

	Minted     []models.HistoryEntry `json:"minted"`
	Failures   []MintFailure         `json:"failures"`
	SaveErrors int                   `json:"save_errors"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
