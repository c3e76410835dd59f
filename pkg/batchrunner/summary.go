package batchrunner

import (
	"fmt"
	"strings"
)

const (
	summaryLinePrefixConstant      = "Summary:"
	summaryTotalTemplateConstant   = "total.targets=%d"
	summaryCountsTemplateConstant  = "succeeded=%d skipped=%d failed=%d"
	summaryFreedTemplateConstant   = "freed=%s"
	byteCountTemplateConstant      = "%d B"
	scaledCountTemplateConstant    = "%.1f %ciB"
	binaryScalingFactorConstant    = 1024
	binaryUnitAbbreviationConstant = "KMGTPE"
	outcomeLineTemplateConstant    = "%-9s %s"
	outcomeDetailSeparatorConstant = ": "
	outcomeFreedTemplateConstant   = " (freed %s)"
)

// RenderOutcomeLine returns the per-target line reported for a single outcome.
func RenderOutcomeLine(outcome TargetOutcome) string {
	line := fmt.Sprintf(outcomeLineTemplateConstant, outcome.Classification, outcome.Name)
	if len(outcome.Detail) > 0 {
		line = line + outcomeDetailSeparatorConstant + outcome.Detail
	}
	if outcome.FreedBytes > 0 {
		line = line + fmt.Sprintf(outcomeFreedTemplateConstant, FormatByteCount(outcome.FreedBytes))
	}
	return line
}

// RenderSummaryLine returns the one-line summary printed after a batch run.
// An empty target list yields an empty string.
func RenderSummaryLine(result RunResult) string {
	if result.TotalTargets() == 0 {
		return ""
	}

	parts := []string{
		summaryLinePrefixConstant,
		fmt.Sprintf(summaryTotalTemplateConstant, result.TotalTargets()),
		fmt.Sprintf(summaryCountsTemplateConstant, result.Succeeded, result.Skipped, result.Failed),
	}
	if result.FreedBytes > 0 {
		parts = append(parts, fmt.Sprintf(summaryFreedTemplateConstant, FormatByteCount(result.FreedBytes)))
	}

	return strings.Join(parts, " ")
}

// FormatByteCount renders a byte count using binary units.
func FormatByteCount(byteCount int64) string {
	if byteCount < binaryScalingFactorConstant {
		return fmt.Sprintf(byteCountTemplateConstant, byteCount)
	}
	divisor, exponent := int64(binaryScalingFactorConstant), 0
	for scaled := byteCount / binaryScalingFactorConstant; scaled >= binaryScalingFactorConstant; scaled /= binaryScalingFactorConstant {
		divisor *= binaryScalingFactorConstant
		exponent++
	}
	return fmt.Sprintf(scaledCountTemplateConstant, float64(byteCount)/float64(divisor), binaryUnitAbbreviationConstant[exponent])
}
