package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/claim-processor/internal/core/domain"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	errFmt  = color.New(color.FgRed).SprintFunc()
)

func statusColor(status domain.ClaimStatus) *color.Color {
	switch status {
	case domain.ClaimApproved:
		return color.New(color.FgGreen, color.Bold)
	case domain.ClaimRejected:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgYellow, color.Bold)
	}
}

func printSummary(w io.Writer, resp *domain.ClaimProcessingResponse) {
	decision := resp.ClaimDecision
	meta := resp.ProcessingMetadata

	fmt.Fprintf(w, "%s %s\n", bold("Claim"), meta.ClaimID)
	fmt.Fprintf(w, "%s %s (confidence %.2f)\n",
		bold("Decision:"),
		statusColor(decision.Status).Sprint(strings.ToUpper(string(decision.Status))),
		decision.Confidence,
	)
	fmt.Fprintf(w, "%s %s\n", bold("Reason:"), decision.Reason)

	fmt.Fprintf(w, "\n%s\n", bold("Documents"))
	for _, doc := range resp.Documents {
		line := fmt.Sprintf("  %-28s %-18s %.2f", doc.Filename, doc.Type, doc.Confidence)
		if doc.TotalAmount != nil {
			line += fmt.Sprintf("  total %.2f", *doc.TotalAmount)
		}
		if doc.Diagnosis != "" {
			line += "  " + doc.Diagnosis
		}
		fmt.Fprintln(w, line)
	}

	printList(w, "Missing documents", resp.Validation.MissingDocuments, errFmt)
	printList(w, "Discrepancies", resp.Validation.Discrepancies, errFmt)
	printList(w, "Warnings", resp.Validation.Warnings, warnFmt)

	risks := make([]string, len(decision.RiskFactors))
	for i, r := range decision.RiskFactors {
		risks[i] = string(r)
	}
	printList(w, "Risk factors", risks, warnFmt)
	printList(w, "Recommended actions", decision.RecommendedActions, fmt.Sprint)

	fmt.Fprintf(w, "\n%s\n", faint(fmt.Sprintf("data quality %.2f, %d files in %.0fms, agents: %s",
		resp.Validation.DataQualityScore,
		meta.FilesProcessed,
		meta.ProcessingTimeMs,
		strings.Join(meta.AgentsUsed, ", "),
	)))
}

func printList(w io.Writer, title string, items []string, style func(...any) string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", bold(title))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", style(item))
	}
}
