package utils

import (
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log is usable before Init so packages and tests never see a nil logger.
var Log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.DateTime,
})

// Init applies the configured level and the level badges.
func Init(level string) {
	Log = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "carte",
	})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	Log.SetLevel(lvl)

	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = badge("DEBUG", "#5F5FAF")
	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("#90EE90")).
		Foreground(lipgloss.Color("#006400")).Bold(true)
	styles.Levels[log.WarnLevel] = badge("WARN", "#D7AF00")
	styles.Levels[log.ErrorLevel] = badge("ERROR", "#FF0000")
	styles.Levels[log.FatalLevel] = badge("FATAL", "#000000")
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	Log.SetStyles(styles)

	if err != nil && level != "" {
		Log.Warn("unknown log level, using info", "level", level)
	}
}

func badge(text, bg string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(text).
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
}
