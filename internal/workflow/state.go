package workflow

import (
	"sort"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Stage is a step of the verification workflow
type Stage string

const (
	StagePending      Stage = "PENDING"
	StageAnalyzing    Stage = "ANALYZING"
	StageSearching    Stage = "SEARCHING"
	StageSynthesizing Stage = "SYNTHESIZING"
	StageAggregating  Stage = "AGGREGATING"
	StagePersisting   Stage = "PERSISTING"
	StagePlanning     Stage = "PLANNING"
	StageScheduling   Stage = "SCHEDULING"
	StageQueueing     Stage = "QUEUEING"
	StageHandoff      Stage = "HANDOFF"
	StageDone         Stage = "DONE"
	StageFailed       Stage = "FAILED"
)

var stageOrder = []Stage{
	StagePending, StageAnalyzing, StageSearching, StageSynthesizing, StageAggregating,
	StagePersisting, StagePlanning, StageScheduling, StageQueueing, StageHandoff, StageDone,
}

// Terminal reports whether no further transitions happen after s
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Progress is the fraction of the happy path completed when s is reached
func (s Stage) Progress() float64 {
	for i, st := range stageOrder {
		if st == s {
			return float64(i) / float64(len(stageOrder)-1)
		}
	}
	return 1
}

// State is the value threaded through a run. It is never mutated in place:
// every With* method and MergeVerdict returns a new State.
type State struct {
	RunID         string
	Claim         model.Claim
	Stage         Stage
	Err           string
	StartedAt     time.Time
	FinishedAt    time.Time
	BudgetMinutes int

	SubClaims []model.SubClaim
	Evidence  map[string]model.EvidenceLog // keyed by sub-claim id
	Verdicts  []model.Verdict              // ordered by sub-claim index
	Persisted bool

	Recommendations []model.MaterialRecommendation
	Selected        []model.MaterialRecommendation
	Queued          []model.MaterialRecommendation
	TotalMinutes    int
	Tasks           []model.GenerationTask
	Handoff         *model.HandoffResult
}

// NewState creates the PENDING state of a run
func NewState(runID string, claim model.Claim, budgetMinutes int, startedAt time.Time) State {
	return State{
		RunID:         runID,
		Claim:         claim,
		Stage:         StagePending,
		StartedAt:     startedAt,
		BudgetMinutes: budgetMinutes,
		Evidence:      map[string]model.EvidenceLog{},
	}
}

// WithStage moves the state to stage
func (s State) WithStage(stage Stage) State {
	s.Stage = stage
	return s
}

// WithError moves the state to FAILED and records err
func (s State) WithError(err error) State {
	s.Stage = StageFailed
	if err != nil {
		s.Err = err.Error()
	}
	return s
}

// WithSubClaims sets the dispatched sub-claims
func (s State) WithSubClaims(subClaims []model.SubClaim) State {
	s.SubClaims = append([]model.SubClaim(nil), subClaims...)
	return s
}

// WithPersisted records whether verdicts reached the store
func (s State) WithPersisted(ok bool) State {
	s.Persisted = ok
	return s
}

// WithSchedule records the planned and scheduled recommendations
func (s State) WithSchedule(recs, selected, queued []model.MaterialRecommendation, totalMinutes int) State {
	s.Recommendations = append([]model.MaterialRecommendation(nil), recs...)
	s.Selected = append([]model.MaterialRecommendation(nil), selected...)
	s.Queued = append([]model.MaterialRecommendation(nil), queued...)
	s.TotalMinutes = totalMinutes
	return s
}

// WithTasks records the generation queue
func (s State) WithTasks(tasks []model.GenerationTask) State {
	s.Tasks = append([]model.GenerationTask(nil), tasks...)
	return s
}

// WithHandoff records the content generator's answer
func (s State) WithHandoff(result model.HandoffResult) State {
	s.Handoff = &result
	return s
}

// Finished stamps the finish time
func (s State) Finished(at time.Time) State {
	s.FinishedAt = at
	return s
}

// MergeVerdict adds the verdict and evidence of one sub-claim. Merging is
// keyed by sub-claim id: a second verdict for the same sub-claim, or a
// verdict for a sub-claim that was never dispatched, leaves s unchanged.
// Verdicts stay ordered by sub-claim index whatever the arrival order.
func (s State) MergeVerdict(v model.Verdict, log model.EvidenceLog) State {
	if _, ok := s.subClaimIndex(v.SubClaimID); !ok || s.HasVerdict(v.SubClaimID) {
		return s
	}

	verdicts := make([]model.Verdict, 0, len(s.Verdicts)+1)
	verdicts = append(verdicts, s.Verdicts...)
	verdicts = append(verdicts, v)
	sort.SliceStable(verdicts, func(i, j int) bool {
		a, _ := s.subClaimIndex(verdicts[i].SubClaimID)
		b, _ := s.subClaimIndex(verdicts[j].SubClaimID)
		return a < b
	})

	evidence := make(map[string]model.EvidenceLog, len(s.Evidence)+1)
	for k, l := range s.Evidence {
		evidence[k] = l
	}
	evidence[v.SubClaimID] = append(model.EvidenceLog{}, log...)

	s.Verdicts = verdicts
	s.Evidence = evidence
	return s
}

// HasVerdict reports whether a verdict for the sub-claim was merged
func (s State) HasVerdict(subClaimID string) bool {
	for _, v := range s.Verdicts {
		if v.SubClaimID == subClaimID {
			return true
		}
	}
	return false
}

// FanInComplete reports whether every dispatched sub-claim has a verdict
func (s State) FanInComplete() bool {
	return len(s.SubClaims) > 0 && len(s.Verdicts) == len(s.SubClaims)
}

// Approved returns the verdicts cleared for materials planning
func (s State) Approved() []model.Verdict {
	return model.Approved(s.Verdicts)
}

func (s State) subClaimIndex(id string) (int, bool) {
	for _, sc := range s.SubClaims {
		if sc.ID == id {
			return sc.Index, true
		}
	}
	return 0, false
}

// Report converts the state into its serializable form
func (s State) Report() *model.RunReport {
	return &model.RunReport{
		RunID:           s.RunID,
		Claim:           s.Claim,
		Stage:           string(s.Stage),
		Error:           s.Err,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		BudgetMinutes:   s.BudgetMinutes,
		SubClaims:       s.SubClaims,
		Evidence:        s.Evidence,
		Verdicts:        s.Verdicts,
		Persisted:       s.Persisted,
		Recommendations: s.Recommendations,
		Selected:        s.Selected,
		Queued:          s.Queued,
		TotalMinutes:    s.TotalMinutes,
		Tasks:           s.Tasks,
		Handoff:         s.Handoff,
	}
}
