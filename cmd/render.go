package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/stats"
	"github.com/abhisek/boki/internal/store"
	"github.com/abhisek/boki/internal/submission"
	"github.com/abhisek/boki/internal/ui/components"
	"github.com/abhisek/boki/internal/ui/theme"
)

const (
	ruleWidth = 72
	barWidth  = 24
)

func rule(n int) string {
	return theme.Label.Render(strings.Repeat("─", n))
}

// row renders a "label  value" line with the label padded to width.
func row(label string, width int, value string) string {
	return theme.Label.Render(fmt.Sprintf("%-*s", width, label)) + "  " + theme.Value.Render(value)
}

func pct(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}

func seconds(ms float64) string {
	return fmt.Sprintf("%.1fs", ms/1000)
}

func when(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func renderResponse(questionID string, resp *submission.Response) string {
	var b strings.Builder

	verdict := theme.Incorrect.Render("✗ Incorrect")
	if resp.IsCorrect {
		verdict = theme.Correct.Render("✓ Correct")
	}
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render(questionID), verdict)

	for _, msg := range resp.ValidationErrors {
		fmt.Fprintf(&b, "  %s %s\n", theme.Caution.Render("!"), msg)
	}

	if !resp.IsCorrect && resp.CorrectAnswer != nil {
		if raw, err := answer.EncodeKey(resp.CorrectAnswer); err == nil {
			fmt.Fprintln(&b, row("Correct answer", 14, string(raw)))
		}
	}
	if resp.Explanation != "" {
		fmt.Fprintln(&b, row("Explanation", 14, resp.Explanation))
	}
	if resp.AnswerTimeMs > 0 {
		fmt.Fprintln(&b, row("Time", 14, seconds(float64(resp.AnswerTimeMs))))
	}
	if u := resp.ReviewUpdate; u != nil && u.Action != review.ActionNoChange {
		fmt.Fprintln(&b, row("Review", 14, fmt.Sprintf("%s (priority %d)", u.Message, u.NewPriority)))
	}
	b.WriteString(theme.Hint.Render("session " + resp.SessionID))
	return b.String()
}

func renderBatch(res *submission.BatchResult) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Mock exam"))
	fmt.Fprintln(&b, rule(40))
	for i, resp := range res.Responses {
		mark := theme.Incorrect.Render("✗")
		if resp.IsCorrect {
			mark = theme.Correct.Render("✓")
		}
		fmt.Fprintf(&b, "%3d  %s  %-15s  %2d pts\n", i+1, mark, resp.Category.DisplayName(), submission.Points(resp.Category))
	}
	fmt.Fprintln(&b, rule(40))

	result := theme.Incorrect.Render("not passed")
	if res.Passed {
		result = theme.Correct.Render("passed")
	}
	fmt.Fprintf(&b, "%s  %s\n", row("Score", 8, fmt.Sprintf("%d / %d", res.Score, res.MaxScore)), result)
	fmt.Fprintln(&b, row("Correct", 8, fmt.Sprintf("%d of %d", res.Correct, len(res.Responses))))
	b.WriteString(theme.Hint.Render("session " + res.SessionID))
	return b.String()
}

func renderReviewItems(items []store.ReviewItem) string {
	if len(items) == 0 {
		return theme.Hint.Render("No review items.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s  %-15s  %-8s  %5s  %5s  %6s  %-16s  %s\n",
		"Question", "Category", "Level", "Score", "Wrong", "Streak", "Status", "Last answered")
	fmt.Fprintln(&b, rule(ruleWidth+26))

	for _, it := range items {
		level := review.LevelOf(it.PriorityScore)
		fmt.Fprintf(&b, "%-12s  %-15s  %s  %5d  %5d  %6d  %-16s  %s\n",
			it.QuestionID,
			it.Category.DisplayName(),
			theme.Priority(string(level)).Render(fmt.Sprintf("%-8s", level)),
			it.PriorityScore,
			it.IncorrectCount,
			it.ConsecutiveCorrectCount,
			it.Status,
			when(it.LastAnsweredAt),
		)
	}
	fmt.Fprintf(&b, "\n%d items", len(items))
	return b.String()
}

func renderSession(sess *review.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", theme.Title.Render("Review session"), theme.Hint.Render(sess.ID))
	fmt.Fprintln(&b, rule(ruleWidth))
	if len(sess.Questions) == 0 {
		b.WriteString(theme.Hint.Render("Nothing to review."))
		return b.String()
	}
	for i, q := range sess.Questions {
		title := q.Title
		if title == "" {
			title = q.Text
		}
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Fprintf(&b, "%3d  %-12s  %-15s  %s\n", i+1, q.ID, q.Category.DisplayName(), title)
	}
	fmt.Fprintf(&b, "\n%d questions", len(sess.Questions))
	return b.String()
}

func renderReviewStats(st *review.Statistics) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Review queue"))
	fmt.Fprintln(&b, rule(ruleWidth))
	fmt.Fprintln(&b, row("Items", 16, fmt.Sprint(st.TotalItems)))
	fmt.Fprintln(&b, row("Needs review", 16, fmt.Sprint(st.NeedsReview)))
	fmt.Fprintln(&b, row("Priority review", 16, fmt.Sprint(st.PriorityReview)))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, theme.Heading.Render("Priority levels"))
	d := st.Distribution
	for _, lc := range []struct {
		level review.Level
		n     int
	}{
		{review.LevelCritical, d.Critical},
		{review.LevelHigh, d.High},
		{review.LevelMedium, d.Medium},
		{review.LevelLow, d.Low},
	} {
		lo, hi := lc.level.Range()
		label := theme.Priority(string(lc.level)).Render(fmt.Sprintf("%-8s", lc.level))
		fmt.Fprintf(&b, "  %s  %3d-%-3d  %d\n", label, lo, hi, lc.n)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, theme.Heading.Render("By category"))
	fmt.Fprintf(&b, "  %-15s  %5s  %6s  %8s  %7s\n", "Category", "Items", "Review", "Priority", "Avg")
	for _, c := range st.ByCategory {
		fmt.Fprintf(&b, "  %-15s  %5d  %6d  %8d  %7.1f\n",
			c.Category.DisplayName(), c.Total, c.NeedsReview, c.PriorityReview, c.AveragePriority)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderWeakAreas(areas []review.WeakArea) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Weak areas"))
	fmt.Fprintln(&b, rule(56))
	fmt.Fprintf(&b, "%-15s  %5s  %8s  %s\n", "Category", "Items", "Avg", "Recommendation")
	for _, w := range areas {
		rec := string(w.Recommendation)
		switch w.Recommendation {
		case review.RecommendIntensive:
			rec = theme.Incorrect.Render(rec)
		case review.RecommendRegular:
			rec = theme.Caution.Render(rec)
		}
		fmt.Fprintf(&b, "%-15s  %5d  %8d  %s\n", w.Category.DisplayName(), w.ReviewCount, w.AveragePriority, rec)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOverall(st *stats.OverallStatistics) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Overall"))
	fmt.Fprintln(&b, rule(48))

	const w = 18
	fmt.Fprintln(&b, row("Questions", w, fmt.Sprintf("%d answered of %d", st.AnsweredQuestions, st.TotalQuestions)))
	fmt.Fprintln(&b, row("Correct", w, fmt.Sprintf("%d (%d incorrect)", st.CorrectAnswers, st.IncorrectAnswers)))
	fmt.Fprintln(&b, row("Accuracy", w, pct(st.AccuracyRate)))
	fmt.Fprintln(&b, components.Bar{Label: "Completion", LabelWidth: w, Ratio: st.CompletionRate, Width: barWidth}.View())
	fmt.Fprintln(&b, row("Submissions", w, fmt.Sprint(st.TotalSubmissions)))
	fmt.Fprintln(&b, row("Study days", w, fmt.Sprint(st.StudyDays)))
	fmt.Fprintln(&b, row("Streak", w, fmt.Sprintf("%d days (best %d)", st.CurrentStreak, st.MaxStreak)))
	fmt.Fprintln(&b, row("Study time", w, (time.Duration(st.TotalStudyTimeMs)*time.Millisecond).Round(time.Second).String()))
	fmt.Fprintln(&b, row("Avg per answer", w, seconds(st.AverageStudyTimeMs)))
	fmt.Fprintln(&b, row("Review items", w, fmt.Sprintf("%d (%d priority)", st.ReviewItems, st.PriorityReviewItems)))
	fmt.Fprint(&b, row("Last studied", w, when(st.LastStudiedAt)))
	return b.String()
}

func renderCategories(list []stats.CategoryStatistics) string {
	var b strings.Builder
	for i, c := range list {
		if i > 0 {
			fmt.Fprintln(&b)
		}
		fmt.Fprintln(&b, theme.Title.Render(c.Category.DisplayName()))
		fmt.Fprintln(&b, rule(48))

		const w = 14
		fmt.Fprintln(&b, row("Answered", w, fmt.Sprintf("%d of %d", c.AnsweredQuestions, c.TotalQuestions)))
		fmt.Fprintln(&b, row("Accuracy", w, fmt.Sprintf("%s (%d correct)", pct(c.AccuracyRate), c.CorrectAnswers)))
		fmt.Fprintln(&b, components.Bar{Label: "Completion", LabelWidth: w, Ratio: c.CompletionRate, Width: barWidth}.View())
		fmt.Fprintln(&b, row("Avg time", w, seconds(c.AverageAnswerTimeMs)))
		fmt.Fprintln(&b, row("Review items", w, fmt.Sprint(c.ReviewItemsCount)))
		fmt.Fprintln(&b, row("Mastered", w, fmt.Sprint(c.MasteredCount)))
		for _, lvl := range stats.DifficultyLevels {
			d := c.ByDifficulty[lvl]
			fmt.Fprintln(&b, row("  "+string(lvl), w, fmt.Sprintf("%d/%d  %s", d.Correct, d.Answered, pct(d.AccuracyRate))))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDaily(list []stats.DailyStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s  %7s  %7s  %8s  %8s  %8s\n", "Date", "Answers", "Correct", "Accuracy", "Time", "Sessions")
	fmt.Fprintln(&b, rule(60))
	for _, d := range list {
		line := fmt.Sprintf("%-10s  %7d  %7d  %8s  %8s  %8d",
			d.Date, d.Submissions, d.CorrectSubmissions, pct(d.AccuracyRate), seconds(float64(d.StudyTimeMs)), d.Sessions)
		if d.Submissions == 0 {
			line = theme.Label.Render(line)
		}
		fmt.Fprintln(&b, line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderGoals(g *stats.LearningGoals) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Goals"))
	fmt.Fprintln(&b, rule(56))
	for _, p := range []struct {
		label string
		goal  stats.Goal
	}{
		{"Today", g.Daily},
		{"This week", g.Weekly},
		{"This month", g.Monthly},
	} {
		bar := components.Bar{
			Label:      p.label,
			LabelWidth: 10,
			Ratio:      p.goal.Completion,
			Width:      barWidth,
			Detail:     fmt.Sprintf("%d/%d", p.goal.Achieved, p.goal.Target),
		}
		fmt.Fprintln(&b, bar.View())
	}

	acc := string(g.Accuracy.Achievement)
	switch g.Accuracy.Achievement {
	case stats.AchievementAchieved:
		acc = theme.Correct.Render(acc)
	case stats.AchievementClose:
		acc = theme.Caution.Render(acc)
	default:
		acc = theme.Incorrect.Render(acc)
	}
	fmt.Fprintf(&b, "%s  %s", row("Accuracy", 10, fmt.Sprintf("%s of %s", pct(g.Accuracy.Current), pct(g.Accuracy.Target))), acc)
	return b.String()
}

func renderPeriods(b *strings.Builder, title string, periods []stats.PeriodProgress) {
	fmt.Fprintln(b, theme.Heading.Render(title))
	fmt.Fprintf(b, "  %-8s  %7s  %8s  %8s  %4s\n", "Period", "Answers", "Accuracy", "Avg time", "Days")
	for _, p := range periods {
		fmt.Fprintf(b, "  %-8s  %7d  %8s  %8s  %4d\n",
			p.Period, p.Submissions, pct(p.AccuracyRate), seconds(p.AverageTimeMs), p.StudyDays)
	}
}

func renderTrends(tr *stats.LearningTrends) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Trends"))
	fmt.Fprintln(&b, rule(56))
	fmt.Fprintln(&b, row("Accuracy", 12, string(tr.AccuracyTrend)))
	fmt.Fprintln(&b, row("Speed", 12, string(tr.SpeedTrend)))
	fmt.Fprintln(&b, row("Consistency", 12, fmt.Sprintf("%d%%", tr.ConsistencyScore)))
	fmt.Fprintln(&b)
	renderPeriods(&b, "Weekly", tr.Weekly)
	fmt.Fprintln(&b)
	renderPeriods(&b, "Monthly", tr.Monthly)
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, theme.Heading.Render("Recommendations"))
	for _, r := range tr.Recommendations {
		fmt.Fprintf(&b, "  • %s\n", r)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCache(rep *app.CacheReport) string {
	var b strings.Builder
	fmt.Fprintln(&b, theme.Title.Render("Statistics cache"))
	fmt.Fprintln(&b, rule(48))

	const w = 14
	info := rep.Info
	fmt.Fprintln(&b, row("Entries", w, fmt.Sprintf("%d (%d valid, %d expired)", info.TotalEntries, info.ValidEntries, info.ExpiredEntries)))
	fmt.Fprintln(&b, row("Hits", w, fmt.Sprint(info.Hits)))
	fmt.Fprintln(&b, row("Misses", w, fmt.Sprint(info.Misses)))
	fmt.Fprintln(&b, row("Hit rate", w, pct(info.HitRate)))
	fmt.Fprintln(&b, row("Keys", w, strings.Join(info.Keys, ", ")))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, theme.Heading.Render("Counters"))
	names := make([]string, 0, len(rep.Counters))
	for name := range rep.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-32s  %g\n", name, rep.Counters[name])
	}
	return strings.TrimRight(b.String(), "\n")
}
