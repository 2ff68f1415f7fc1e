package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("PULSE_TEST_MODE", "1")
		if os.Getenv("AUTH_FAULTS_ENABLED") == "" {
			_ = os.Setenv("AUTH_FAULTS_ENABLED", "false")
		}
		if os.Getenv("ANALYTICS_FAULT_RATE") == "" {
			_ = os.Setenv("ANALYTICS_FAULT_RATE", "0")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
