package probe

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// SerialPort is a CDC serial port exposed by a WCH-Link.
type SerialPort struct {
	Name    string
	VID     string
	PID     string
	Serial  string
	Product string
}

// listPorts is swapped in tests.
var listPorts = enumerator.GetDetailedPortsList

// SerialPorts returns the serial ports that belong to WCH USB devices.
func SerialPorts() ([]SerialPort, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return filterWCH(ports), nil
}

func filterWCH(ports []*enumerator.PortDetails) []SerialPort {
	vid := fmt.Sprintf("%04x", uint16(VendorWCH))
	var out []SerialPort
	for _, p := range ports {
		if p == nil || !p.IsUSB || !strings.EqualFold(p.VID, vid) {
			continue
		}
		out = append(out, SerialPort{
			Name:    p.Name,
			VID:     strings.ToLower(p.VID),
			PID:     strings.ToLower(p.PID),
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	return out
}
