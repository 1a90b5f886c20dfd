package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HELIOS_TEST_MODE") == "" {
			_ = os.Setenv("HELIOS_TEST_MODE", "1")
		}
	})
}
