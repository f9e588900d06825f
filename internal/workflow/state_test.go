package workflow

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

func subClaims(n int) []model.SubClaim {
	out := make([]model.SubClaim, n)
	for i := range out {
		out[i] = model.SubClaim{ID: fmt.Sprintf("sc-%d", i), ClaimID: "c", Index: i, Text: fmt.Sprintf("part %d", i)}
	}
	return out
}

func verdictFor(sc model.SubClaim, label model.Label) model.Verdict {
	return model.Verdict{SubClaimID: sc.ID, ClaimText: sc.Text, Label: label, Evidence: []model.Evidence{}}
}

func TestMergeVerdict_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	labels := []model.Label{model.LabelTrue, model.LabelFalse, model.LabelUndetermined}

	for round := 0; round < 100; round++ {
		n := 1 + rng.Intn(8)
		scs := subClaims(n)
		base := NewState("run", model.Claim{ID: "c"}, 120, time.Time{}).WithSubClaims(scs)

		verdicts := make([]model.Verdict, n)
		for i, sc := range scs {
			verdicts[i] = verdictFor(sc, labels[rng.Intn(3)])
		}

		// arrival order is random and some verdicts arrive twice
		arrivals := append([]model.Verdict(nil), verdicts...)
		for i := 0; i < rng.Intn(4); i++ {
			arrivals = append(arrivals, verdicts[rng.Intn(n)])
		}
		rng.Shuffle(len(arrivals), func(i, j int) { arrivals[i], arrivals[j] = arrivals[j], arrivals[i] })

		s := base
		for _, v := range arrivals {
			s = s.MergeVerdict(v, model.EvidenceLog{{Tool: "t", Input: v.SubClaimID}})
		}

		if !s.FanInComplete() {
			t.Fatalf("round %d: fan-in incomplete, %d of %d", round, len(s.Verdicts), n)
		}
		for i, v := range s.Verdicts {
			if v.SubClaimID != scs[i].ID {
				t.Fatalf("round %d: verdict %d is %s, want %s", round, i, v.SubClaimID, scs[i].ID)
			}
			if v.Label != verdicts[i].Label {
				t.Fatalf("round %d: verdict %d label %s, want %s", round, i, v.Label, verdicts[i].Label)
			}
		}
		if len(s.Evidence) != n {
			t.Fatalf("round %d: evidence for %d sub-claims, want %d", round, len(s.Evidence), n)
		}
		if len(base.Verdicts) != 0 || len(base.Evidence) != 0 {
			t.Fatalf("round %d: merge modified the base state", round)
		}
	}
}

func TestMergeVerdict_Idempotent(t *testing.T) {
	scs := subClaims(2)
	s := NewState("run", model.Claim{}, 0, time.Time{}).WithSubClaims(scs)

	once := s.MergeVerdict(verdictFor(scs[1], model.LabelTrue), nil)
	twice := once.MergeVerdict(verdictFor(scs[1], model.LabelFalse), nil)

	if len(twice.Verdicts) != 1 || twice.Verdicts[0].Label != model.LabelTrue {
		t.Errorf("second merge changed state: %+v", twice.Verdicts)
	}
	if once.FanInComplete() {
		t.Error("FanInComplete() = true with 1 of 2 verdicts")
	}
	if log, ok := once.Evidence[scs[1].ID]; !ok || log == nil {
		t.Error("nil evidence log not normalized to empty")
	}
}

func TestMergeVerdict_UnknownSubClaim(t *testing.T) {
	s := NewState("run", model.Claim{}, 0, time.Time{}).WithSubClaims(subClaims(1))
	got := s.MergeVerdict(model.Verdict{SubClaimID: "stranger", Label: model.LabelTrue}, nil)
	if len(got.Verdicts) != 0 {
		t.Errorf("merged verdict for unknown sub-claim: %+v", got.Verdicts)
	}
}

func TestStage(t *testing.T) {
	if StagePending.Progress() != 0 || StageDone.Progress() != 1 {
		t.Errorf("progress bounds = %v..%v", StagePending.Progress(), StageDone.Progress())
	}
	prev := -1.0
	for _, st := range stageOrder {
		if st.Progress() <= prev {
			t.Errorf("progress of %s does not increase", st)
		}
		prev = st.Progress()
	}
	for _, st := range []Stage{StageDone, StageFailed} {
		if !st.Terminal() {
			t.Errorf("%s not terminal", st)
		}
	}
	if StageHandoff.Terminal() {
		t.Error("HANDOFF is terminal")
	}
}

func TestStateReport(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	scs := subClaims(1)
	s := NewState("run-1", model.Claim{ID: "c"}, 90, start).
		WithSubClaims(scs).
		MergeVerdict(verdictFor(scs[0], model.LabelTrue), nil).
		WithStage(StageDone).
		Finished(start.Add(time.Minute))

	r := s.Report()
	if r.RunID != "run-1" || r.Stage != "DONE" || r.BudgetMinutes != 90 || len(r.Verdicts) != 1 {
		t.Errorf("report = %+v", r)
	}
	if r.Duration() != time.Minute {
		t.Errorf("Duration() = %v, want 1m", r.Duration())
	}
}
