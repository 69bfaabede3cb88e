package wlink

import "strings"

// ErrorKind is a coarse classification of a wlink failure. It only selects
// the diagnostic shown to the user.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindConnectionTimeout
	KindLinkProtocol
	KindUSBIO
	KindUnclassified
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnectionTimeout:
		return "connection-timeout"
	case KindLinkProtocol:
		return "link-protocol-error"
	case KindUSBIO:
		return "usb-io-error"
	default:
		return "unclassified"
	}
}

var kindMarkers = []struct {
	marker string
	kind   ErrorKind
}{
	{"operation timed out", KindConnectionTimeout},
	{"wch-link underlying protocol error", KindLinkProtocol},
	{"input/output error", KindUSBIO},
}

// Classify maps raw wlink output to an ErrorKind.
func Classify(output string) ErrorKind {
	lower := strings.ToLower(output)
	for _, m := range kindMarkers {
		if strings.Contains(lower, m.marker) {
			return m.kind
		}
	}
	return KindUnclassified
}

// Diagnosis is the user-facing explanation of an ErrorKind.
type Diagnosis struct {
	Summary string
	Steps   []string
}

// Diagnose returns what to tell the user about a failure of the given kind.
// raw is shown verbatim for unclassified failures.
func Diagnose(kind ErrorKind, raw string) Diagnosis {
	switch kind {
	case KindConnectionTimeout:
		return Diagnosis{Summary: "Device connection timed out. Please reconnect the device and try again."}
	case KindLinkProtocol:
		return Diagnosis{Summary: "Communication error with WCH-Link. Please reconnect the device and try again."}
	case KindUSBIO:
		return Diagnosis{
			Summary: "USB I/O Error. Please try the following:",
			Steps: []string{
				"Unplug and replug the WCH-Link device",
				"Check USB cable connection",
				"Try a different USB port",
				"Ensure device is not being accessed by another program",
			},
		}
	case KindNone:
		return Diagnosis{}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Diagnosis{Summary: "wlink failed without output"}
	}
	return Diagnosis{Summary: "Error executing command: " + raw}
}
