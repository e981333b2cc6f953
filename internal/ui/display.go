// Package ui renders CLI output: section frames, status lines, the Docker
// stats summary and the scheduler source table.
package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"nselfadmin/internal/metrics"
	"nselfadmin/internal/scheduler"
	"nselfadmin/pkg/utils"
)

func PrintHeader() {
	fmt.Println(RenderBanner())
	fmt.Println(RenderSubtitle())
}

func PrintSection(title string) {
	fmt.Println(RenderSectionStart(title))
}

func PrintSectionEnd() {
	fmt.Println(RenderSectionEnd())
}

func PrintStatus(status, message string) {
	fmt.Println(RenderStatus(status, message))
}

func PrintKeyValue(key, value string) {
	fmt.Println(RenderKeyValue(key, value))
}

// RenderDockerStats renders the aggregate stats as key/value lines.
func RenderDockerStats(s metrics.DockerStats) []string {
	c := s.Containers
	return []string{
		RenderKeyValue("CPU", utils.FormatPercentage(s.CPU)),
		RenderKeyValue("Memory", fmt.Sprintf("%s %.1f / %.1f GiB (%s)",
			RenderProgressBar(s.Memory.Percentage, 20), s.Memory.Used, s.Memory.Total, utils.FormatPercentage(s.Memory.Percentage))),
		RenderKeyValue("Storage", fmt.Sprintf("%s %s / %s (%s)",
			RenderProgressBar(s.Storage.Percentage, 20), utils.FormatGB(s.Storage.Used), utils.FormatGB(s.Storage.Total), utils.FormatPercentage(s.Storage.Percentage))),
		RenderKeyValue("Network", fmt.Sprintf("rx %.1f MB / tx %.1f MB", s.Network.RX, s.Network.TX)),
		RenderKeyValue("Containers", fmt.Sprintf("%d total, %d running, %d stopped", c.Total, c.Running, c.Stopped)),
		RenderKeyValue("Health", fmt.Sprintf("%d healthy, %d unhealthy", c.Healthy, c.Unhealthy)),
	}
}

func PrintDockerStats(s metrics.DockerStats) {
	for _, line := range RenderDockerStats(s) {
		fmt.Println(line)
	}
}

// RenderSourceTable renders scheduler sources as a bordered table.
func RenderSourceTable(sources []scheduler.SourceStatus) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SeparatorStyle).
		Headers("SOURCE", "ENABLED", "INTERVAL", "LAST FETCH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})

	for _, s := range sources {
		age := "never"
		if s.Fetched() {
			age = utils.FormatAge(s.Age) + " ago"
		}
		t.Row(s.Name, strconv.FormatBool(s.Enabled), s.Interval.String(), age)
	}
	return t.String()
}
