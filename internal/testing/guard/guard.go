package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SIGE_TEST_MODE") == "" {
			_ = os.Setenv("SIGE_TEST_MODE", "1")
		}
	})
}
