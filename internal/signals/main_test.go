package signals

import (
	"os"
	"testing"

	"github.com/avolkhov/newspulse/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
