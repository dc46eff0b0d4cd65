package competition_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/compstaff/compstaff/integration_tests/testenv"
)

var env *testenv.TestEnvironment

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping competition integration tests in short mode")
		os.Exit(0)
	}

	var err error
	env, err = testenv.New(testenv.Options{Nats: true})
	if err != nil {
		log.Printf("Failed to set up integration environment: %v", err)
		os.Exit(1)
	}

	code := m.Run()
	env.Close()
	os.Exit(code)
}

// cleanDB truncates every table before a test runs.
func cleanDB(t *testing.T) context.Context {
	t.Helper()
	ctx := env.Ctx
	if err := testenv.CleanupDatabase(ctx, env.DB); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
	return ctx
}
