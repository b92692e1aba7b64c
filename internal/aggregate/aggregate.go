package aggregate

import (
	"sort"

	"github.com/blackwell-systems/sessionlens/internal/analyzer"
)

// Aggregate builds a Report over sessions. When comparison is non-nil it is
// aggregated as the previous period and the report carries deltas against
// it. Aggregate never modifies its input and is deterministic; the returned
// report has no ReportID until Stamp is called.
func Aggregate(sessions, comparison []analyzer.ClassifiedSession) Report {
	r := build(sessions)
	if comparison != nil {
		prev := build(comparison)
		r.Comparison = Compare(r, prev)
	}
	return r
}

// accumulator collects the raw material for a Report in one pass.
type accumulator struct {
	r Report

	durations  []float64
	toolCalls  []float64
	filesCount []float64
	scores     []float64
	efficiency [4][]float64

	issues, successes, tools, topics map[string]int
	skills, agents, slashCommands    map[string]int

	editSessions, commitSessions int
	activeSessions, testSessions int
}

func newAccumulator() *accumulator {
	a := &accumulator{
		issues:        map[string]int{},
		successes:     map[string]int{},
		tools:         map[string]int{},
		topics:        map[string]int{},
		skills:        map[string]int{},
		agents:        map[string]int{},
		slashCommands: map[string]int{},
	}
	a.r.Summary.ByOutcome = make(map[analyzer.Outcome]int, len(analyzer.Outcomes))
	for _, o := range analyzer.Outcomes {
		a.r.Summary.ByOutcome[o] = 0
	}
	a.r.ByProject = map[string]Breakdown{}
	a.r.ByTaskType = map[analyzer.TaskType]Breakdown{}
	a.r.BySessionType = map[analyzer.SessionType]SessionTypeStats{
		analyzer.SessionWork:   {},
		analyzer.SessionLookup: {},
	}
	a.r.ByDate = map[string]DateStats{}
	a.r.JiraTickets = map[string]TicketStats{}
	return a
}

func build(sessions []analyzer.ClassifiedSession) Report {
	a := newAccumulator()
	for i := range sessions {
		a.add(&sessions[i])
	}
	return a.finish()
}

func (a *accumulator) add(c *analyzer.ClassifiedSession) {
	sum := &a.r.Summary
	files := c.FilesTouchedCount()
	success := c.Outcome.Successful()
	hasIssues := len(c.Issues) > 0

	sum.TotalSessions++
	sum.TotalDurationMinutes += c.DurationMinutes
	sum.TotalUserMessages += c.UserMessageCount
	sum.TotalAssistantMessages += c.AssistantMessageCount
	sum.TotalToolCalls += c.ToolCallCount
	sum.TotalFilesTouched += files
	sum.ByOutcome[c.Outcome]++
	if success {
		sum.SessionsCompleted++
	}
	if c.LikelyCompleted {
		sum.SessionsLikelyComplete++
	}
	if hasIssues {
		sum.SessionsWithIssues++
	}

	if c.DurationMinutes > 0 {
		a.durations = append(a.durations, c.DurationMinutes)
	}
	if c.ToolCallCount > 0 {
		a.toolCalls = append(a.toolCalls, float64(c.ToolCallCount))
	}
	if files > 0 {
		a.filesCount = append(a.filesCount, float64(files))
	}
	a.scores = append(a.scores, float64(c.ConfidenceScore))
	// Zero ratios (no files, no messages) are left out of the averages.
	for i, v := range []*float64{
		c.Efficiency.ToolsPerFile, c.Efficiency.ToolsPerMessage,
		c.Efficiency.FilesPerHour, c.Efficiency.MessagesPerMinute,
	} {
		if v != nil && *v > 0 {
			a.efficiency[i] = append(a.efficiency[i], *v)
		}
	}

	addTo := func(b Breakdown) Breakdown {
		b.Sessions++
		b.Duration += c.DurationMinutes
		b.ToolCalls += c.ToolCallCount
		b.FilesTouched += files
		if success {
			b.Completed++
		}
		if hasIssues {
			b.WithIssues++
		}
		return b
	}
	a.r.ByProject[c.ProjectName()] = addTo(a.r.ByProject[c.ProjectName()])
	a.r.ByTaskType[c.TaskType] = addTo(a.r.ByTaskType[c.TaskType])

	st := a.r.BySessionType[c.SessionType]
	st.Count++
	st.TotalDuration += c.DurationMinutes
	st.TotalToolCalls += c.ToolCallCount
	a.r.BySessionType[c.SessionType] = st

	if date := c.Date(); date != "" {
		d := a.r.ByDate[date]
		d.Sessions++
		d.Duration += c.DurationMinutes
		if success {
			d.Completed++
		}
		a.r.ByDate[date] = d
	}

	if c.JiraTicket != "" {
		t := a.r.JiraTickets[c.JiraTicket]
		t.Sessions++
		if success {
			t.Completed++
		}
		a.r.JiraTickets[c.JiraTicket] = t
	}

	edits, commit := c.HasEdits(), c.Git.SuccessfulCommit()
	if edits {
		a.editSessions++
	}
	if commit {
		a.commitSessions++
	}
	if edits || commit {
		a.activeSessions++
	}
	if c.HasTestRun() {
		a.testSessions++
	}

	tally(a.issues, c.Issues)
	tally(a.successes, c.Successes)
	tally(a.tools, c.ToolsUsed)
	tally(a.topics, c.KeyTopics)

	ft := &a.r.Features.Totals
	if n := len(c.Features.SkillsInvoked); n > 0 {
		ft.SessionsUsingSkills++
		ft.SkillsInvoked += n
		tally(a.skills, c.Features.SkillsInvoked)
	}
	if n := len(c.Features.AgentsSpawned); n > 0 {
		ft.SessionsUsingAgents++
		ft.AgentsSpawned += n
		tally(a.agents, c.Features.AgentsSpawned)
	}
	if n := len(c.Features.SlashCommands); n > 0 {
		ft.SessionsUsingSlashCommands++
		ft.SlashCommands += n
		tally(a.slashCommands, c.Features.SlashCommands)
	}
}

func (a *accumulator) finish() Report {
	r := a.r
	n := r.Summary.TotalSessions

	r.Summary.TotalDurationMinutes = round1(r.Summary.TotalDurationMinutes)
	r.Summary.CompletionRate = rate(r.Summary.SessionsCompleted, n)
	r.Summary.IssueRate = rate(r.Summary.SessionsWithIssues, n)

	if n > 0 {
		fn := float64(n)
		r.Averages = Averages{
			DurationMinutes: round1(r.Summary.TotalDurationMinutes / fn),
			UserMessages:    round1(float64(r.Summary.TotalUserMessages) / fn),
			ToolCalls:       round1(float64(r.Summary.TotalToolCalls) / fn),
			FilesTouched:    round1(float64(r.Summary.TotalFilesTouched) / fn),
		}
	}

	for k, b := range r.ByProject {
		r.ByProject[k] = finishBreakdown(b)
	}
	for k, b := range r.ByTaskType {
		r.ByTaskType[k] = finishBreakdown(b)
	}
	for k, st := range r.BySessionType {
		st.Pct = rate(st.Count, n)
		st.TotalDuration = round1(st.TotalDuration)
		if st.Count > 0 {
			st.AvgDuration = round1(st.TotalDuration / float64(st.Count))
			st.AvgToolCalls = round1(float64(st.TotalToolCalls) / float64(st.Count))
		}
		r.BySessionType[k] = st
	}
	for k, d := range r.ByDate {
		d.Duration = round1(d.Duration)
		r.ByDate[k] = d
	}
	if len(r.ByDate) > 0 {
		dates := make([]string, 0, len(r.ByDate))
		for d := range r.ByDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		r.Metadata.PeriodStart = dates[0]
		r.Metadata.PeriodEnd = dates[len(dates)-1]
	}

	r.DurationHistogram = DurationHistogram(a.durations)
	r.DurationDistribution = Describe(a.durations)
	r.ToolCallsDistribution = Describe(a.toolCalls)
	r.FilesTouchedDistribution = Describe(a.filesCount)

	r.EfficiencyAverages = EfficiencyAverages{
		ToolsPerFile:      average(a.efficiency[0]),
		ToolsPerMessage:   average(a.efficiency[1]),
		FilesPerHour:      average(a.efficiency[2]),
		MessagesPerMinute: average(a.efficiency[3]),
	}
	r.CompletionConfidence = confidenceStats(a.scores)

	r.ActivityMetrics = ActivityMetrics{
		SessionsWithEdits:      a.editSessions,
		SessionsWithEditsPct:   rate(a.editSessions, n),
		SessionsWithCommits:    a.commitSessions,
		SessionsWithCommitsPct: rate(a.commitSessions, n),
		SessionsWithTests:      a.testSessions,
		SessionsWithTestsPct:   rate(a.testSessions, n),
		ActivityRate:           rate(a.activeSessions, n),
	}

	r.CommonIssues = sortedCounts(a.issues)
	r.CommonSuccesses = sortedCounts(a.successes)
	r.ToolsUsage = sortedCounts(a.tools)
	r.TopicsFrequency = sortedCounts(a.topics)
	r.Features.Skills = sortedCounts(a.skills)
	r.Features.Agents = sortedCounts(a.agents)
	r.Features.SlashCommands = sortedCounts(a.slashCommands)
	return r
}

func finishBreakdown(b Breakdown) Breakdown {
	b.Duration = round1(b.Duration)
	b.CompletionRate = rate(b.Completed, b.Sessions)
	b.IssueRate = rate(b.WithIssues, b.Sessions)
	if b.Sessions > 0 {
		b.AvgDuration = round1(b.Duration / float64(b.Sessions))
	}
	return b
}

func average(vals []float64) *Average {
	if len(vals) == 0 {
		return nil
	}
	return &Average{
		Avg:    round2(meanOf(vals)),
		Median: round2(medianOf(vals)),
		Count:  len(vals),
	}
}

func confidenceStats(scores []float64) *ConfidenceStats {
	if len(scores) == 0 {
		return nil
	}
	cs := &ConfidenceStats{
		AvgScore:    round1(meanOf(scores)),
		MedianScore: round1(medianOf(scores)),
		MinScore:    int(scores[0]),
		MaxScore:    int(scores[0]),
	}
	for _, f := range scores {
		s := int(f)
		cs.MinScore = min(cs.MinScore, s)
		cs.MaxScore = max(cs.MaxScore, s)
		switch analyzer.AssessScore(s) {
		case analyzer.AssessmentHigh:
			cs.HighCount++
		case analyzer.AssessmentMedium:
			cs.MediumCount++
		default:
			cs.LowCount++
		}
	}
	return cs
}

func tally(m map[string]int, names []string) {
	for _, n := range names {
		m[n]++
	}
}

// sortedCounts flattens a tally into a list sorted by count descending, then
// name. The result is never nil.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
