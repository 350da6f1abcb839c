package main

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/newthinker/cryptostream/internal/core"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{42150.5, "$42,150.50"},
		{1234567.891, "$1,234,567.89"},
		{999, "$999.00"},
		{0.5123, "$0.512300"},
		{0, "$0.00"},
		{math.NaN(), "n/a"},
	}
	for _, tt := range tests {
		if got := formatCurrency(tt.in); got != tt.want {
			t.Errorf("formatCurrency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLargeNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5e9, "$2.50B"},
		{12.34e6, "$12.34M"},
		{1500, "$1.50K"},
		{12, "$12.00"},
	}
	for _, tt := range tests {
		if got := formatLargeNumber(tt.in); got != tt.want {
			t.Errorf("formatLargeNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	if got := formatPercentage(2.5); got != "+2.50%" {
		t.Errorf("unexpected %q", got)
	}
	if got := formatPercentage(2.125); got != "+2.12%" {
		t.Errorf("expected round-half-even on an exact binary value, got %q", got)
	}
	if got := formatPercentage(-1.5); got != "-1.50%" {
		t.Errorf("unexpected %q", got)
	}
	if got := formatPercentage(0); got != "0.00%" {
		t.Errorf("unexpected %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp(1704067200000); got != "2024-01-01 00:00" {
		t.Errorf("unexpected %q", got)
	}
}

func TestPrintAssets(t *testing.T) {
	var buf bytes.Buffer
	err := printAssets(&buf, []core.Asset{
		{Symbol: "BTC/USD", Name: "Bitcoin", Price: 42000, Change24h: 1.5, Volume24h: 2e9},
	})
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	for _, want := range []string{"BTC/USD", "Bitcoin", "$42,000.00", "+1.50%", "$2.00B"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func TestPrintCandles(t *testing.T) {
	var buf bytes.Buffer
	err := printCandles(&buf, []core.Candle{
		{Timestamp: 1704067200000, Open: 42000, High: 42100, Low: 41900, Close: 42050, Volume: 1500},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"2024-01-01 00:00", "$42,050.00", "$1.50K", "1 candles"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrintExportList(t *testing.T) {
	var buf bytes.Buffer
	if err := printExportList(&buf, []string{"csv/a.csv", "json/b.json"}); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "csv/a.csv\njson/b.json\n2 exports\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
