package analyzer

import "github.com/blackwell-systems/sessionlens/internal/session"

// CriterionStatus records whether a task type's completion criterion held.
type CriterionStatus string

const (
	CriterionMet    CriterionStatus = "met"
	CriterionNotMet CriterionStatus = "not_met"
)

// Condition is one named sub-condition of a completion criterion.
type Condition struct {
	Name string `json:"name"`
	Met  bool   `json:"met"`
}

// Criterion is a task type's completion predicate, expressed as named
// conditions combined with AND (the default) or OR.
type Criterion struct {
	TaskType   TaskType    `json:"task_type"`
	Conditions []Condition `json:"conditions"`
	AnyOf      bool        `json:"any_of,omitempty"`
}

// Met evaluates the criterion.
func (c Criterion) Met() bool {
	if len(c.Conditions) == 0 {
		return false
	}
	for _, cond := range c.Conditions {
		if cond.Met == c.AnyOf {
			return c.AnyOf
		}
	}
	return !c.AnyOf
}

// Partial reports whether the criterion is a conjunction of two or more
// conditions of which some, but not all, hold. Single-condition criteria and
// disjunctions are never partial.
func (c Criterion) Partial() bool {
	if c.AnyOf || len(c.Conditions) < 2 {
		return false
	}
	met := 0
	for _, cond := range c.Conditions {
		if cond.Met {
			met++
		}
	}
	return met > 0 && met < len(c.Conditions)
}

// Completion is the evaluated form of a Criterion.
type Completion struct {
	Status          CriterionStatus `json:"status"`
	Partial         bool            `json:"partial"`
	CriteriaMet     []string        `json:"criteria_met"`
	CriteriaMissing []string        `json:"criteria_missing"`
}

// Met reports whether the criterion held.
func (c Completion) Met() bool { return c.Status == CriterionMet }

// Thresholds used by the completion criteria.
const (
	debugMinDuration   = 5.0
	multipleFilesFloor = 1
)

// CompletionCriterion builds the completion criterion for a task type from
// the session's facts. Task types without a dedicated criterion (review,
// update, lookup) use the general one.
func CompletionCriterion(tt TaskType, s session.Session) Criterion {
	hasEdits := s.HasEdits()
	hasReads := s.HasReads()
	files := s.FilesTouchedCount()
	engaged := s.UserMessageCount > 1

	c := Criterion{TaskType: tt}
	switch tt {
	case TaskBugFix:
		c.Conditions = []Condition{
			{"has_edits", hasEdits},
			{"has_verification", s.HasTestRun() || s.Git.HasCommit},
		}
	case TaskFeature:
		c.Conditions = []Condition{
			{"has_edits", hasEdits},
			{"files_touched", files > 0},
		}
	case TaskRefactor:
		c.Conditions = []Condition{
			{"has_edits", hasEdits},
			{"multiple_files_touched", files > multipleFilesFloor},
		}
	case TaskDebug:
		c.Conditions = []Condition{
			{"has_reads", hasReads},
			{"sufficient_investigation_time", s.DurationMinutes > debugMinDuration},
			{"user_interaction", engaged},
		}
	case TaskTesting:
		c.Conditions = []Condition{
			{"test_execution", s.HasTestRun()},
		}
	case TaskConfig:
		c.AnyOf = true
		c.Conditions = []Condition{
			{"shell_execution", s.HasShell()},
			{"has_edits", hasEdits},
		}
	case TaskExploration:
		c.Conditions = []Condition{
			{"has_reads", hasReads},
			{"user_interaction", engaged},
		}
	default:
		c.AnyOf = true
		c.Conditions = []Condition{
			{"has_edits", hasEdits},
			{"git_changes", files > 0 && (s.Git.HasCommit || s.Git.HasPush)},
		}
	}
	return c
}

// EvaluateCompletion evaluates a criterion into a Completion record.
func EvaluateCompletion(c Criterion) Completion {
	out := Completion{
		Status:          CriterionNotMet,
		Partial:         c.Partial(),
		CriteriaMet:     []string{},
		CriteriaMissing: []string{},
	}
	if c.Met() {
		out.Status = CriterionMet
	}
	for _, cond := range c.Conditions {
		if cond.Met {
			out.CriteriaMet = append(out.CriteriaMet, cond.Name)
		} else {
			out.CriteriaMissing = append(out.CriteriaMissing, cond.Name)
		}
	}
	return out
}
