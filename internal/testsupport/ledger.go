package testsupport

import (
	"testing"

	"motionmux/internal/config"
	"motionmux/internal/ledger"
	"motionmux/internal/logging"
)

// MustOpenLedger opens the ledger configured in cfg.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l, err := ledger.Open(cfg.Paths.LedgerPath, logging.NewNop())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	return l
}
