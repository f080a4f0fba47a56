package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"marketpulse/pkg/utils"
)

var (
	subtle  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	accent  = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	bullish = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#73F59F"}
	bearish = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	neutral = lipgloss.AdaptiveColor{Light: "#B7950B", Dark: "#F4D03F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 2).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().Foreground(subtle)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

// Terminal renders the report for a terminal with colors and a boxed verdict.
func Terminal(s Summary) string {
	var sections []string

	sections = append(sections, headerStyle.Render(fmt.Sprintf("%s · %s · %s", s.Symbol, s.Timeframe, utils.FormatPrice(s.Price))))

	verdict := fmt.Sprintf("%s\nScore %s/100  Confidence %.0f%%",
		tone(s.Score).Bold(true).Render(VerdictLabel(s.Verdict)),
		utils.FormatSigned(s.Score, 0), s.Confidence)
	sections = append(sections, boxStyle.Render(verdict))

	var b strings.Builder
	for _, c := range s.Breakdown {
		if !c.Available {
			fmt.Fprintf(&b, "  %-10s %s\n", c.Component, mutedStyle.Render("n/a"))
			continue
		}
		fmt.Fprintf(&b, "  %-10s %s  (w %.2f)\n", c.Component, tone(c.Score*100).Render(utils.FormatSigned(c.Points, 1)), c.EffectiveWeight)
	}
	sections = append(sections, sectionStyle.Render("Breakdown"), strings.TrimRight(b.String(), "\n"))

	b.Reset()
	for _, t := range s.Trend.Timeframes {
		if !t.Available {
			fmt.Fprintf(&b, "  %-4s %s\n", t.Timeframe, mutedStyle.Render("n/a"))
			continue
		}
		adx := ""
		if t.ADX != nil {
			adx = fmt.Sprintf("  ADX %.0f", *t.ADX)
		}
		fmt.Fprintf(&b, "  %-4s %s  %.0f%%%s\n", t.Timeframe, directionStyle(t.Direction).Render(t.Direction), t.Strength*100, adx)
	}
	fmt.Fprintf(&b, "  confluence %s (%s)", directionStyle(s.Trend.Direction).Render(s.Trend.Direction), s.Trend.Agreement)
	sections = append(sections, sectionStyle.Render("Trend"), b.String())

	b.Reset()
	ind := s.Indicators
	row := func(label string, v *float64, format func(float64) string) {
		if v == nil {
			fmt.Fprintf(&b, "  %-8s %s\n", label, mutedStyle.Render("n/a"))
			return
		}
		fmt.Fprintf(&b, "  %-8s %s\n", label, format(*v))
	}
	oneDecimal := func(v float64) string { return fmt.Sprintf("%.1f", v) }
	row("RSI", ind.RSI, oneDecimal)
	row("MACD h", ind.MACDHistogram, func(v float64) string { return tone(v).Render(utils.FormatSigned(v, 4)) })
	row("Stoch K", ind.StochK, oneDecimal)
	row("BB %B", ind.PercentB, func(v float64) string { return fmt.Sprintf("%.2f", v) })
	row("ATR", ind.ATR, utils.FormatPrice)
	row("ADX", ind.ADX, oneDecimal)
	row("VWAP", ind.VWAP, utils.FormatPrice)
	sections = append(sections, sectionStyle.Render("Indicators"), strings.TrimRight(b.String(), "\n"))

	b.Reset()
	level := func(name string, l *LevelLine) {
		if l == nil {
			fmt.Fprintf(&b, "  %-3s %s\n", name, mutedStyle.Render("-"))
			return
		}
		fmt.Fprintf(&b, "  %-3s %s  %s  x%d\n", name, utils.FormatPrice(l.Price), utils.FormatSigned(l.DistancePct, 2)+"%", l.Touches)
	}
	level("R2", s.Levels.R2)
	level("R1", s.Levels.R1)
	fmt.Fprintf(&b, "  %-3s %s\n", "NOW", lipgloss.NewStyle().Bold(true).Render(utils.FormatPrice(s.Price)))
	level("S1", s.Levels.S1)
	level("S2", s.Levels.S2)
	sections = append(sections, sectionStyle.Render("Levels"), strings.TrimRight(b.String(), "\n"))

	if s.Flow.Available {
		flow := fmt.Sprintf("  %s  buy %.0f%% / sell %.0f%%  vol %s  obv %s",
			s.Flow.Label, s.Flow.BuyPct, s.Flow.SellPct, utils.FormatRatio(s.Flow.VolumeRatio), s.Flow.OBVTrend)
		sections = append(sections, sectionStyle.Render("Money flow"), flow)
	}

	if len(s.Patterns) > 0 {
		b.Reset()
		for i, p := range s.Patterns {
			if i == 4 {
				break
			}
			fmt.Fprintf(&b, "  %s  %s  %d bars ago\n", biasStyle(p.Bias).Render(p.Name), stars(p.Strength), p.BarsAgo)
		}
		sections = append(sections, sectionStyle.Render("Patterns"), strings.TrimRight(b.String(), "\n"))
	}

	b.Reset()
	if len(s.Scenarios) == 0 {
		b.WriteString(mutedStyle.Render("  no setup"))
	}
	for _, sc := range s.Scenarios {
		fmt.Fprintf(&b, "  #%d %s  if %s %s  entry %s  target %s  stop %s  R:R %.1f  (%s)\n",
			sc.Rank, biasStyle(scenarioBias(sc.Kind)).Render(sc.Kind), triggerText(sc.Trigger), utils.FormatPrice(sc.TriggerAt),
			utils.FormatPrice(sc.Entry), utils.FormatPrice(sc.Target), utils.FormatPrice(sc.Stop), sc.RiskReward, sc.Probability)
	}
	if rg := s.Range; rg != nil {
		fmt.Fprintf(&b, "  %s  fade %s / %s  stops %s / %s  width %.1f ATR  (%s)\n",
			biasStyle("neutral").Render("range"), utils.FormatPrice(rg.Support), utils.FormatPrice(rg.Resistance),
			utils.FormatPrice(rg.LongStop), utils.FormatPrice(rg.ShortStop), rg.WidthATR, rg.Probability)
	}
	sections = append(sections, sectionStyle.Render("Scenarios"), strings.TrimRight(b.String(), "\n"))

	sections = append(sections, mutedStyle.Render(fmt.Sprintf("%s · volatility %s · next %s in %dh",
		s.Session.Active, s.Session.Volatility, s.Session.NextSession, s.Session.HoursUntilNext)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func tone(v float64) lipgloss.Style {
	switch {
	case math.IsNaN(v):
		return mutedStyle
	case v > 0:
		return lipgloss.NewStyle().Foreground(bullish)
	case v < 0:
		return lipgloss.NewStyle().Foreground(bearish)
	default:
		return lipgloss.NewStyle().Foreground(neutral)
	}
}

func directionStyle(d string) lipgloss.Style {
	switch d {
	case "up":
		return lipgloss.NewStyle().Foreground(bullish)
	case "down":
		return lipgloss.NewStyle().Foreground(bearish)
	default:
		return lipgloss.NewStyle().Foreground(neutral)
	}
}

func biasStyle(b string) lipgloss.Style {
	switch b {
	case "bullish":
		return lipgloss.NewStyle().Foreground(bullish)
	case "bearish":
		return lipgloss.NewStyle().Foreground(bearish)
	default:
		return lipgloss.NewStyle().Foreground(neutral)
	}
}
