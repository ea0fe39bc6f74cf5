package main

import (
	"io"
	"text/template"
	"time"

	"github.com/achupradeep3050/crypto/internal/usecase"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"ts":  func(t int64) string { return time.Unix(t, 0).UTC().Format("2006-01-02 15:04") },
	"pct": func(v float64) float64 { return v * 100 },
	"inc": func(i int) int { return i + 1 },
}).Parse(`# Backtest: {{.R.Strategy}} on {{.R.Symbol}}

Period: {{.From}} to {{.To}}

| Metric | Value |
|---|---|
| Start balance | {{printf "%.2f" .R.StartBalance}} |
| Final balance | {{printf "%.2f" .R.FinalBalance}} |
| ROI | {{printf "%.2f" .R.Stats.ROI}}% |
| Total trades | {{.R.TotalTrades}} |
| Win rate | {{printf "%.1f" (pct .R.WinRate)}}% |
| Max drawdown | {{printf "%.2f" .R.Stats.MaxDrawdown}}% |
| Sharpe | {{printf "%.2f" .R.Stats.Sharpe}} |
| Profit factor | {{printf "%.2f" .R.Stats.ProfitFactor}} |
{{- if .R.Liquidated}}

**The account was liquidated.**
{{- end}}

## Trades
{{if .R.Trades}}
| # | Direction | Entry time | Exit time | Entry | Exit | Size | PnL | Reason |
|---|---|---|---|---|---|---|---|---|
{{- range $i, $t := .R.Trades}}
| {{inc $i}} | {{$t.Direction}} | {{ts $t.EntryTime}} | {{ts $t.ExitTime}} | {{printf "%.2f" $t.EntryPrice}} | {{printf "%.2f" $t.ExitPrice}} | {{$t.Size}} | {{printf "%.2f" $t.PnL}} | {{$t.Reason}} |
{{- end}}
{{else}}
No trades.
{{end}}`))

func writeReport(w io.Writer, res *usecase.Result, from, to string) error {
	return reportTmpl.Execute(w, struct {
		R        *usecase.Result
		From, To string
	}{res, from, to})
}
