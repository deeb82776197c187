package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"eatdecider/backend/internal/config"
	"eatdecider/backend/internal/domain"
)

const cliMenu = `items:
  - id: dosa
    name: Masala Dosa
    restaurant: Udupi Cafe
    cuisine: South Indian
    veg: true
    spice: 2
    oiliness: 1.5
    price: 120
    eta_min: 20
    rating: 4.6
  - id: thai
    name: Pad Thai
    restaurant: Bangkok Bowl
    cuisine: Thai
    veg: true
    spice: 3
    price: 220
    eta_min: 30
    rating: 4.3
`

func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	menu := filepath.Join(dir, "menu.yaml")
	if err := os.WriteFile(menu, []byte(cliMenu), 0o600); err != nil {
		t.Fatalf("write menu: %v", err)
	}
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	t.Setenv("CATALOG_BASE_PATH", menu)
	t.Setenv("HISTORY_FILE", filepath.Join(dir, "history.json"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRecommendTextOutput(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "recommend", "--budget", "400")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !strings.Contains(out, "Masala Dosa") || !strings.Contains(out, "2 candidates") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRecommendRequiresBudget(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "recommend"); err == nil {
		t.Fatalf("expected missing --budget to fail")
	}
}

func TestRecommendJSONArchetypes(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "recommend", "--budget", "400", "--strategy", "archetypes", "-o", "json")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	var resp domain.RecommendationResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(resp.Picks) != 3 || resp.Picks[0].Type != domain.PickSafe {
		t.Fatalf("expected Safe/Value/Adventure picks, got %+v", resp.Picks)
	}
}

func TestFeedbackPersistsBetweenInvocations(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "feedback", "thai", "--outcome", "ordered", "--rating", "4"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	out, err := run(t, "history", "-o", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var state domain.HistoryState
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if state.CuisineCount("Thai") != 1 || len(state.LastSelected) != 1 {
		t.Fatalf("unexpected history %+v", state)
	}

	out, err = run(t, "events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "ordered") || !strings.Contains(out, "thai") {
		t.Fatalf("unexpected events output:\n%s", out)
	}
}

func TestMenuAndInvalidOutput(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "menu")
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 menu lines, got:\n%s", out)
	}

	if _, err := run(t, "menu", "-o", "xml"); err == nil {
		t.Fatalf("expected invalid output format to fail")
	}
}

func TestFeesFlatAndTiered(t *testing.T) {
	out, err := run(t, "fees", "300", "-o", "json")
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	var ramped domain.FeeBreakdown
	if err := json.Unmarshal([]byte(out), &ramped); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if ramped.Discount != 50 || ramped.Total != 319 {
		t.Fatalf("unexpected ramped fees %+v", ramped)
	}

	out, err = run(t, "fees", "300", "--tiered")
	if err != nil {
		t.Fatalf("fees --tiered: %v", err)
	}
	if !strings.Contains(out, "discount      -80.00") || !strings.Contains(out, "total         289.00") {
		t.Fatalf("unexpected tiered output:\n%s", out)
	}

	if _, err := run(t, "fees", "abc"); err == nil {
		t.Fatalf("expected a non-numeric subtotal to fail")
	}
}
