package report

import (
	"fmt"
	"math"
	"strings"

	"marketpulse/pkg/utils"
)

// MaxMessageLength is Telegram's limit for one message.
const MaxMessageLength = 4096

const divider = "─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─"

// HTML renders the full report using Telegram's HTML parse mode.
func HTML(s Summary) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	section := func(title string) {
		line("")
		line(divider)
		line("")
		line("%s", title)
	}

	line("📊 <b>%s</b>  ·  %s", EscapeHTML(s.Symbol), s.Timeframe)
	line("💲 <b>%s</b>", utils.FormatPrice(s.Price))
	line("")
	line("%s <b>%s</b>", verdictEmoji(s.Score), VerdictLabel(s.Verdict))
	line("Score: <b>%s</b>/100  ·  Confidence: <b>%.0f%%</b>", utils.FormatSigned(s.Score, 0), s.Confidence)
	line("%s  %s", bar(math.Abs(s.Score), 100, 10), leaning(s.Score))

	section("📈 <b>Score Breakdown</b>")
	for _, c := range s.Breakdown {
		if !c.Available {
			line("  ⚪ %s: n/a", title(c.Component))
			continue
		}
		line("  %s %s: <b>%s</b>", verdictEmoji(c.Score*100), title(c.Component), utils.FormatSigned(c.Points, 1))
	}

	section("🔀 <b>Trend by Timeframe</b>")
	for _, t := range s.Trend.Timeframes {
		if !t.Available {
			line("  ⚪ <b>%s</b> — n/a", strings.ToUpper(t.Timeframe))
			continue
		}
		adx := ""
		if t.ADX != nil {
			adx = fmt.Sprintf(", ADX %.0f", *t.ADX)
		}
		line("  %s <b>%s</b> — %s  (strength %.0f%%%s)", arrow(t.Direction), strings.ToUpper(t.Timeframe), t.Direction, t.Strength*100, adx)
	}
	line("  📊 Confluence: <b>%s</b> · %s", s.Trend.Direction, s.Trend.Agreement)

	section("📉 <b>Indicators</b>")
	ind := s.Indicators
	if ind.RSI != nil {
		line("  <b>RSI:</b>  %.1f  — %s", *ind.RSI, rsiTag(*ind.RSI))
	}
	if ind.MACDHistogram != nil {
		word := "🔴 Bearish"
		if *ind.MACDHistogram > 0 {
			word = "🟢 Bullish"
		}
		if ind.MACDMomentum != "" {
			word += ", histogram " + ind.MACDMomentum
		}
		line("  <b>MACD:</b>  %s", word)
	}
	if ind.StochK != nil && ind.StochD != nil {
		note := ""
		switch {
		case *ind.StochK < 20:
			note = " — ⚠️ Oversold"
		case *ind.StochK > 80:
			note = " — ⚠️ Overbought"
		}
		line("  <b>Stoch:</b>  K %.0f / D %.0f%s", *ind.StochK, *ind.StochD, note)
	}
	if ind.PercentB != nil && ind.BandWidthPct != nil {
		line("  <b>BB %%B:</b>  %.2f  (width %.1f%%)", *ind.PercentB, *ind.BandWidthPct)
	}
	if ind.ATR != nil && ind.ATRPct != nil {
		line("  <b>ATR:</b>  %s  (%.1f%%)", utils.FormatPrice(*ind.ATR), *ind.ATRPct)
	}
	if ind.VWAP != nil {
		pos := "below ❌"
		if s.Price > *ind.VWAP {
			pos = "above ✅"
		}
		line("  <b>VWAP:</b>  %s  (%s)", utils.FormatPrice(*ind.VWAP), pos)
	}
	if len(s.Missing) > 0 {
		line("  <i>n/a: %s</i>", EscapeHTML(strings.Join(s.Missing, ", ")))
	}

	section("🎯 <b>Key Levels</b>")
	lv := s.Levels
	levelLine := func(icon, name string, l *LevelLine) {
		if l == nil {
			line("  %s %s  —", icon, name)
			return
		}
		line("  %s %s  <b>%s</b>  (%d touches)", icon, name, utils.FormatPrice(l.Price), l.Touches)
	}
	levelLine("🔺", "R2", lv.R2)
	levelLine("🔺", "R1", lv.R1)
	if lv.RangePosition != nil {
		line("  ▶️ <b>NOW  %s</b>  (range: %.0f%%)", utils.FormatPrice(s.Price), *lv.RangePosition)
	} else {
		line("  ▶️ <b>NOW  %s</b>", utils.FormatPrice(s.Price))
	}
	levelLine("🔻", "S1", lv.S1)
	levelLine("🔻", "S2", lv.S2)

	section("💰 <b>Money Flow</b>")
	f := s.Flow
	if f.Available {
		line("  %s", flowLabel(f.Label))
		line("  Buy  %s  %.0f%%", bar(f.BuyPct, 100, 10), f.BuyPct)
		line("  Sell %s  %.0f%%", bar(f.SellPct, 100, 10), f.SellPct)
		note := f.VolumeTrend
		if f.VolumeSpike {
			note = "🔥 SPIKE"
		}
		line("  Vol: <b>%s</b> avg  %s", utils.FormatRatio(f.VolumeRatio), note)
		line("  OBV: %s  ·  VWAP: %s", f.OBVTrend, f.VWAPPosition)
	} else {
		line("  n/a")
	}

	if len(s.Patterns) > 0 {
		section("🕯 <b>Candle Patterns</b>")
		for i, p := range s.Patterns {
			if i == 4 {
				break
			}
			when := "now"
			if p.BarsAgo > 0 {
				when = fmt.Sprintf("%db ago", p.BarsAgo)
			}
			line("  %s %s  %s  (%s)", biasEmoji(p.Bias), p.Name, stars(p.Strength), when)
		}
	}

	section("🗺 <b>Scenarios</b>")
	if len(s.Scenarios) == 0 {
		line("  No setup clears the minimum risk-reward.")
	}
	for _, sc := range s.Scenarios {
		line("")
		line("%s <b>#%d %s</b>  %s %s", biasEmoji(scenarioBias(sc.Kind)), sc.Rank, title(sc.Kind), probabilityEmoji(sc.Probability), sc.Probability)
		line("  IF → %s %s", triggerText(sc.Trigger), utils.FormatPrice(sc.TriggerAt))
		if len(sc.Signals) > 0 {
			line("  + %s", strings.ReplaceAll(strings.Join(sc.Signals, ", "), "_", " "))
		}
		line("  🚪 Entry: %s", utils.FormatPrice(sc.Entry))
		line("  🎯 Target: %s", utils.FormatPrice(sc.Target))
		line("  🛑 Stop: %s", utils.FormatPrice(sc.Stop))
		line("  R:R  <b>%.1f</b>", sc.RiskReward)
	}
	if rg := s.Range; rg != nil {
		line("")
		line("🟡 <b>Range-bound</b>  %s %s", probabilityEmoji(rg.Probability), rg.Probability)
		line("  IF → price stays between %s and %s with low ADX", utils.FormatPrice(rg.Support), utils.FormatPrice(rg.Resistance))
		line("  🔄 Fade: buy near %s, sell near %s", utils.FormatPrice(rg.Support), utils.FormatPrice(rg.Resistance))
		line("  🛑 Stops: %s / %s", utils.FormatPrice(rg.LongStop), utils.FormatPrice(rg.ShortStop))
		line("  Width  <b>%.1f</b> ATR", rg.WidthATR)
	}

	section(fmt.Sprintf("⏰ <b>Session:</b>  %s", EscapeHTML(s.Session.Active)))
	line("  Volatility: %s  ·  Next: %s in %dh", s.Session.Volatility, s.Session.NextSession, s.Session.HoursUntilNext)
	if s.Session.Note != "" {
		line("  💡 %s", EscapeHTML(s.Session.Note))
	}
	line("")
	b.WriteString("<i>⚠️ Not financial advice. DYOR.</i>")

	return b.String()
}

// Quick renders a one-line verdict for watch lists and /quick.
func Quick(s Summary) string {
	return fmt.Sprintf("%s <b>%s</b> %s  ·  %s  ·  score <b>%s</b>  ·  conf %.0f%%",
		verdictEmoji(s.Score), EscapeHTML(s.Symbol), utils.FormatPrice(s.Price),
		VerdictLabel(s.Verdict), utils.FormatSigned(s.Score, 0), s.Confidence)
}

// Chunk splits text into pieces no longer than limit bytes, preferring
// paragraph breaks, then line breaks. Chunks never split a UTF-8 rune.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], "\n")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !runeStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}

// EscapeHTML escapes the characters Telegram's HTML mode reserves.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func bar(value, max float64, width int) string {
	filled := int(math.Round(value / max * float64(width)))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

func leaning(score float64) string {
	switch {
	case score > 0:
		return "bullish"
	case score < 0:
		return "bearish"
	default:
		return "flat"
	}
}

func verdictEmoji(score float64) string {
	switch {
	case score >= 10:
		return "🟢"
	case score <= -10:
		return "🔴"
	default:
		return "🟡"
	}
}

func arrow(direction string) string {
	switch direction {
	case "up":
		return "🟢↗"
	case "down":
		return "🔴↘"
	default:
		return "🟡➡️"
	}
}

func rsiTag(rsi float64) string {
	switch {
	case rsi >= 70:
		return "⚠️ Overbought"
	case rsi <= 30:
		return "⚠️ Oversold"
	case rsi >= 55:
		return "Bullish"
	case rsi <= 45:
		return "Bearish"
	default:
		return "Neutral"
	}
}

func flowLabel(label string) string {
	switch label {
	case "strong_inflow":
		return "🟢🟢 Strong Inflow"
	case "inflow":
		return "🟢 Inflow"
	case "outflow":
		return "🔴 Outflow"
	case "strong_outflow":
		return "🔴🔴 Strong Outflow"
	default:
		return "🟡 Balanced"
	}
}

func biasEmoji(bias string) string {
	switch bias {
	case "bullish":
		return "🟢"
	case "bearish":
		return "🔴"
	default:
		return "🟡"
	}
}

func scenarioBias(kind string) string {
	if kind == "bullish" || kind == "breakout" {
		return "bullish"
	}
	return "bearish"
}

func probabilityEmoji(p string) string {
	switch p {
	case "high":
		return "🟢"
	case "medium":
		return "🟡"
	default:
		return "🔴"
	}
}

func triggerText(trigger string) string {
	switch trigger {
	case "hold_above":
		return "holds above"
	case "hold_below":
		return "holds below"
	case "close_above":
		return "closes above"
	case "close_below":
		return "closes below"
	default:
		return trigger
	}
}

func stars(strength float64) string {
	n := int(math.Ceil(strength * 3))
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}
	return strings.Repeat("★", n)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
