package prompt

import (
	_ "embed"
)

//go:embed system.txt
var system string

// System is the assistant persona and booking policy.
func System() string {
	return system
}
