package orchestrator

import (
	"context"
	"time"

	"github.com/zen-systems/boardroom/pkg/dispatch"
	"github.com/zen-systems/boardroom/pkg/memory"
	"github.com/zen-systems/boardroom/pkg/research"
	"github.com/zen-systems/boardroom/pkg/router"
)

// State accumulates one orchestration call. It is owned by that call and
// never shared.
type State struct {
	RunID     string
	Query     string
	UseMemory bool
	StartedAt time.Time

	Decision  router.Decision
	Research  research.Findings
	Results   map[string]dispatch.Result
	Synthesis string

	// History is the transcript snapshot taken before dispatch.
	History    []memory.Message
	Transcript string

	Stages []StageRecord
}

// Stage is one step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, s *State) error
}

// StageRecord captures how one stage went.
type StageRecord struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Stage names.
const (
	StageRoute      = "route"
	StageResearch   = "research"
	StageDispatch   = "dispatch"
	StageSynthesize = "synthesize"
)
