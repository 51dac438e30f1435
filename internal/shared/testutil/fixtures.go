package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FiveLocationsCSV is a small dataset with default column names. Its
// converged QoL under default parameters is FiveLocationsQoL.
const FiveLocationsCSV = `id,w,p_H,P_t,p_n,L,L_b
1,1.0,1.0,1.0,1.0,1000,1100
2,1.1,1.3,1.02,1.1,1500,1400
3,0.95,0.8,0.99,0.9,800,900
4,1.2,1.5,1.01,1.2,2000,1800
5,0.9,0.7,0.98,0.85,600,700
`

// FiveLocationsQoL is the expected output for FiveLocationsCSV.
var FiveLocationsQoL = []float64{1.0, 2.134626559191494, 0.8838754071307362, 2.5568834056696303, 0.8013492947444294}

// WriteFixture writes content to name inside a per-test temp directory and
// returns the full path.
func WriteFixture(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
