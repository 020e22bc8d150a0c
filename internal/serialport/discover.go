package serialport

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/stephenkingston/avrman/internal/target"
)

// Discover scans the host's serial devices for one whose USB VID:PID
// matches a candidate. It returns a PortError if none or more than one
// match is found, since auto-detection must be unambiguous.
func Discover(candidates []target.ProductID) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", &PortError{Port: "(auto)", Op: "enumerate", Err: err}
	}

	var matches []string
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		for _, c := range candidates {
			if strings.EqualFold(p.VID, c.VID) && strings.EqualFold(p.PID, c.PID) {
				matches = append(matches, p.Name)
				break
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", &PortError{Port: "(auto)", Op: "discover", Err: fmt.Errorf("no matching serial device found")}
	case 1:
		return matches[0], nil
	default:
		return "", &PortError{Port: "(auto)", Op: "discover",
			Err: fmt.Errorf("multiple matching serial devices found: %v", matches)}
	}
}
