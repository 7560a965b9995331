package statsintegrationtests

import (
	"log"
	"os"
	"testing"

	"github.com/YuTeChang/VibeBadminton-sub000/integration_tests/testutils"
)

// TestMain initializes and cleans up the global test environment.
func TestMain(m *testing.M) {
	oldAppEnv := os.Getenv("APP_ENV")
	os.Setenv("APP_ENV", "test")

	exitCode := m.Run()

	testutils.Shutdown()
	os.Setenv("APP_ENV", oldAppEnv)
	log.Printf("TestMain: finished with exit code: %d", exitCode)
	os.Exit(exitCode)
}
