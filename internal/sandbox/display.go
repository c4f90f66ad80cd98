package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// displayBase is the first display number tried. Numbers below 10
	// are commonly taken by real sessions.
	displayBase = 10
	// displayLimit bounds the search so a wedged host fails loudly.
	displayLimit = 200
)

// Display is a claimed virtual display number. The claim file prevents
// two concurrent sessions from racing for the same number before their
// X servers create the real /tmp/.Xn-lock.
type Display struct {
	Number int

	claimPath string
}

// String returns the DISPLAY form, e.g. ":10".
func (d *Display) String() string {
	return fmt.Sprintf(":%d", d.Number)
}

// AllocateDisplay claims a free display number. lockDir is where the X
// server lock files live (normally /tmp); claimDir holds our own claim
// files, created with O_CREAT|O_EXCL so exactly one winner exists per
// number.
func AllocateDisplay(lockDir, claimDir string) (*Display, error) {
	for n := displayBase; n < displayBase+displayLimit; n++ {
		if _, err := os.Stat(filepath.Join(lockDir, fmt.Sprintf(".X%d-lock", n))); err == nil {
			continue
		}

		claim := filepath.Join(claimDir, fmt.Sprintf(".gui-replay-X%d-claim", n))
		f, err := os.OpenFile(claim, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to claim display :%d: %w", n, err)
		}
		_ = f.Close()

		return &Display{Number: n, claimPath: claim}, nil
	}
	return nil, fmt.Errorf("no free display number in :%d..:%d", displayBase, displayBase+displayLimit-1)
}

// Release removes the claim file. Safe to call more than once.
func (d *Display) Release() {
	if d.claimPath == "" {
		return
	}
	_ = os.Remove(d.claimPath)
	d.claimPath = ""
}
