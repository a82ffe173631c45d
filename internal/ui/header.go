package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/jobtail/internal/batchapi"
)

// renderHeader renders the job header line.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("jobtail", styles.Logo)}

	if m.store == nil {
		parts = append(parts,
			bg.Render("file", styles.MutedText)+bg.Space()+
				bg.Render(truncateMiddle(m.source, max(10, m.width/2)), styles.Text))
		return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
	}

	h := m.header
	switch {
	case h.Missing:
		parts = append(parts, bg.Render(fmt.Sprintf("JOB #%d NOT FOUND", m.jobID), styles.DangerText))
	case !h.HasJob && h.LastError != nil:
		parts = append(parts,
			bg.Render(strings.ToUpper(classifyConnectionError(h.LastError)), styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(truncateMiddle(m.source, 40), styles.MutedText),
		)
	case !h.HasJob:
		parts = append(parts, bg.Render("Connecting to "+truncateMiddle(m.source, 40)+"...", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, m.jobParts(styles, bg)...)
		if h.IsOffline() {
			parts = append(parts, bg.Render("OFFLINE", styles.DangerText))
		}
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, sep))
}

func (m Model) jobParts(styles Styles, bg BgStyle) []string {
	job := m.header.Job
	compact := m.width < 100

	name := job.Name
	if name == "" {
		name = "(unnamed)"
	}
	parts := []string{
		bg.Render(truncate(name, max(10, m.width/4)), styles.Text.Bold(true)),
		styles.StatusStyle(job.Status).Render(string(job.Status)),
		bg.Render(fmt.Sprintf("#%d", job.ID), styles.MutedText),
	}

	if !compact {
		if t := job.ParsedSubmittedAt(); !t.IsZero() {
			parts = append(parts,
				bg.Render("submitted", styles.FaintText)+bg.Space()+
					bg.Render(FormatTimestamp(t), styles.MutedText))
		}
		if d := jobElapsed(job, time.Now()); d > 0 {
			parts = append(parts,
				bg.Render("elapsed", styles.FaintText)+bg.Space()+
					bg.Render(d.String(), styles.MutedText))
		}
		if job.ContainerType != "" {
			parts = append(parts, bg.Render(job.ContainerType, styles.FaintText))
		}
	}
	if job.Status.Terminal() && job.ExitCode != nil {
		style := styles.SuccessText
		if *job.ExitCode != 0 {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(fmt.Sprintf("exit %d", *job.ExitCode), style))
	}
	if job.Status == batchapi.StatusFailed && job.ErrorMessage != nil && !compact {
		parts = append(parts, bg.Render(truncate(*job.ErrorMessage, 40), styles.DangerText))
	}
	if job.LogExpired {
		parts = append(parts, bg.Render("LOG EXPIRED", styles.WarningText.Bold(true)))
	}
	return parts
}

// jobElapsed is how long the job has been running, or ran, rounded to seconds.
func jobElapsed(job batchapi.Job, now time.Time) time.Duration {
	start := job.ParsedStartedAt()
	if start.IsZero() {
		return 0
	}
	end := job.ParsedFinishedAt()
	if end.IsZero() {
		end = now
	}
	return end.Sub(start).Round(time.Second)
}

// classifyConnectionError returns a short description of a request error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "offline"
	case strings.Contains(msg, "no such host"):
		return "host not found"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	default:
		return truncate(msg, 60)
	}
}
