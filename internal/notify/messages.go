package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/trading"
)

const (
	// MaxMessageLen Telegram 单条消息上限留出余量
	MaxMessageLen = 4000
	runLogMargin  = 200
)

// Escape escapes the characters Telegram's HTML parse mode reserves.
func Escape(s string) string {
	return html.EscapeString(s)
}

// ConfidenceBar renders c filled and 10-c empty cells.
func ConfidenceBar(c int) string {
	if c < 0 {
		c = 0
	}
	if c > 10 {
		c = 10
	}
	return strings.Repeat("█", c) + strings.Repeat("░", 10-c)
}

func NarrativeSummary(narratives []models.DiscoveredNarrative, newCount, skippedCount int) string {
	plural := "s"
	if len(narratives) == 1 {
		plural = ""
	}

	lines := []string{
		"🚨 <b>Meme Narrative Detector — Analysis Complete</b>",
		"",
		fmt.Sprintf("📊 Found <b>%d</b> narrative%s | ✨ %d new | ⏭️ %d skipped", len(narratives), plural, newCount, skippedCount),
		"",
	}

	for _, n := range narratives {
		lines = append(lines,
			fmt.Sprintf("📌 <b>%s</b>  [%s] %d/10", Escape(n.Name), ConfidenceBar(n.Confidence), n.Confidence),
			"   "+Escape(n.Description),
			fmt.Sprintf("   Tokens: <code>%s</code>", Escape(strings.Join(n.MatchingTokens, ", "))),
			"",
		)
	}

	return strings.Join(lines, "\n")
}

// TokenMinted announces a successful mint. txURL links the transaction in an explorer.
func TokenMinted(n models.DiscoveredNarrative, mintAddress, txURL string) string {
	return strings.Join([]string{
		fmt.Sprintf("✅ <b>Token Minted — %s</b>", Escape(n.Name)),
		"",
		fmt.Sprintf("🪙 <b>%s</b> ($%s)", Escape(n.TokenName), Escape(n.Symbol)),
		fmt.Sprintf("📊 Confidence: %d/10", n.Confidence),
		"💬 " + Escape(n.Description),
		"",
		fmt.Sprintf("🔗 Mint: <code>%s</code>", Escape(mintAddress)),
		fmt.Sprintf(`🔗 <a href="%s">View on Solscan</a>`, Escape(txURL)),
	}, "\n")
}

func MintFailed(n models.DiscoveredNarrative, err error) string {
	return strings.Join([]string{
		fmt.Sprintf("❌ <b>Mint Failed — %s</b>", Escape(n.Name)),
		"",
		fmt.Sprintf("🪙 %s ($%s)", Escape(n.TokenName), Escape(n.Symbol)),
		fmt.Sprintf("<code>%s</code>", Escape(err.Error())),
	}, "\n")
}

func CapReached(minted, perDay int) string {
	return fmt.Sprintf("⏸️ <b>Daily mint cap reached</b>\n\n%d/%d tokens minted in the last 24h. Skipping this run.", minted, perDay)
}

// InsufficientFunds reports the wallet shortfall. usdPrice <= 0 omits the USD estimate.
func InsufficientFunds(st trading.FundingStatus, usdPrice float64) string {
	balance := fmt.Sprintf("%.4f SOL", st.SOL())
	if usdPrice > 0 {
		balance += fmt.Sprintf(" (~$%.2f)", st.SOL()*usdPrice)
	}
	return strings.Join([]string{
		"💸 <b>Insufficient funds</b>",
		"",
		fmt.Sprintf("Wallet: <code>%s</code>", Escape(st.Address)),
		"Balance: " + balance,
		fmt.Sprintf("Required: %.4f SOL", st.RequiredSOL()),
	}, "\n")
}

func SourceWarning(source string, err error) string {
	return fmt.Sprintf("⚠️ <b>Data source warning</b> (%s)\n<code>%s</code>", Escape(source), Escape(err.Error()))
}

func OracleError(err error) string {
	return fmt.Sprintf("❌ <b>Narrative discovery failed</b>\n<code>%s</code>", Escape(err.Error()))
}

// RunLog renders the run transcript as one or more messages that each fit MaxMessageLen.
// A single message has a plain header; split logs get "part N" headers.
func RunLog(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}

	const header = "📋 <b>Run Log</b>\n\n"
	full := Escape(strings.Join(lines, "\n"))
	if len(header)+len(full)+len("<pre></pre>") <= MaxMessageLen {
		return []string{header + "<pre>" + full + "</pre>"}
	}

	var (
		chunks  []string
		current strings.Builder
		part    = 1
	)
	flush := func() {
		chunks = append(chunks, fmt.Sprintf("📋 <b>Run Log (part %d)</b>\n\n<pre>%s</pre>", part, current.String()))
		part++
		current.Reset()
	}

	limit := MaxMessageLen - runLogMargin
	for _, line := range lines {
		escaped := Escape(line)
		// 超长的单行直接截断
		if len(escaped) > limit {
			escaped = truncate(escaped, limit)
		}
		if current.Len() > 0 && current.Len()+1+len(escaped) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(escaped)
	}
	if current.Len() > 0 {
		flush()
	}
	return chunks
}

// truncate cuts s to at most n bytes without splitting a rune or an HTML entity.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	if amp := strings.LastIndexByte(s[:cut], '&'); amp >= 0 && !strings.Contains(s[amp:cut], ";") {
		cut = amp
	}
	return s[:cut]
}

func NoTokens() string {
	return "📭 <b>No tokens fetched</b>\n\nMarket data returned nothing this run."
}

func NoNarratives() string {
	return "🤷 <b>No narratives found</b>\n\nThe oracle did not return any valid narrative this run."
}

func AllSkipped(skipped int) string {
	return fmt.Sprintf("⏭️ <b>Nothing new to mint</b>\n\nAll %d narratives were duplicates or below the confidence threshold.", skipped)
}

func RunComplete(minted, failed int) string {
	return fmt.Sprintf("🏁 <b>Run complete</b>\n\n✅ %d minted | ❌ %d failed", minted, failed)
}

func FundingUnavailable(err error) string {
	return fmt.Sprintf("⚠️ <b>Could not check wallet funding</b>, minting skipped\n<code>%s</code>", Escape(err.Error()))
}
