package flatfile_test

import (
	"strings"

	"github.com/okian/flatboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const aliceUUID = "3f1b2c4d-0000-4000-8000-000000000001"

// canonicalFields is a current-schema record in canonical formatting.
func canonicalFields() []string {
	return []string{
		"Alice", "20", "", "", "12.5", "3", "0", // 0-6
		"1", "2", "3", "4", "5", "6", "7", "8", // 7-14 levels
		"0", "0", "0", "0", "0", "0", "0", "0", // 15-22 xp
		"", "9", "0", // 23-25
		"0", "0", "0", "0", "0", "0", "0", // 26-32 cooldowns
		"", "10", "0", "0", "1700000000", "HEARTS", // 33-38
		"11", "0", aliceUUID, "0", "0", // 39-43
		"12", "0", "13", "0", // 44-47
		"NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", // 48-56
		"DISABLED", "DISABLED", // 57-58
		"NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", "NORMAL", // 59-64
		"0", "0", "0", "0", "0", // 65-69
	}
}

func canonicalLine() string {
	return strings.Join(canonicalFields(), ":") + ":"
}

// legacyFields returns n fields shaped like an old writer's output.
func legacyFields(n int) []string {
	f := make([]string, n)
	for i := range f {
		switch i {
		case 0:
			f[i] = "Old"
		case 2, 3, 23, 33:
			f[i] = ""
		default:
			f[i] = "5"
		}
	}
	return f
}
