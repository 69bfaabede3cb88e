package probe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/gousb"
)

// UdevRule grants non-root access to WCH-Link adapters in both RISC-V and
// ARM mode.
const UdevRule = `SUBSYSTEM=="usb", ATTR{idVendor}=="1a86", MODE="0666"`

// UdevRulePath is where UdevRule is expected to be installed.
const UdevRulePath = "/etc/udev/rules.d/99-wch.rules"

// Tools that must be on PATH.
var RequiredTools = []string{"git", "cargo", "wlink", "pkg-config"}

// Check is the result of one dependency check.
type Check struct {
	Name   string
	OK     bool
	Detail string
	// Fix lists shell commands that resolve a failed check. They are shown,
	// never run.
	Fix []string
}

// Report is the outcome of a full dependency check.
type Report struct {
	Checks []Check
}

// OK reports whether every check passed.
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

// Script joins the fix commands of every failed check, one per line, in
// check order.
func (r Report) Script() string {
	var b strings.Builder
	for _, c := range r.Failed() {
		for _, fix := range c.Fix {
			b.WriteString(fix)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Checker inspects the host. Zero fields fall back to the real system.
type Checker struct {
	GOOS     string
	LookPath func(string) (string, error)
	ReadFile func(string) ([]byte, error)
	Home     string
}

func (c Checker) goos() string {
	if c.GOOS != "" {
		return c.GOOS
	}
	return runtime.GOOS
}

func (c Checker) lookPath(name string) (string, error) {
	if c.LookPath != nil {
		return c.LookPath(name)
	}
	return exec.LookPath(name)
}

func (c Checker) readFile(name string) ([]byte, error) {
	if c.ReadFile != nil {
		return c.ReadFile(name)
	}
	return os.ReadFile(name)
}

// Run checks the platform, the required tools and the udev rule.
func (c Checker) Run() Report {
	var r Report

	linux := c.goos() == "linux"
	platform := Check{Name: "platform", OK: linux, Detail: c.goos()}
	if !linux {
		platform.Detail = c.goos() + " is not supported, install wlink manually"
	}
	r.Checks = append(r.Checks, platform)

	for _, tool := range RequiredTools {
		r.Checks = append(r.Checks, c.tool(tool))
	}

	if linux {
		r.Checks = append(r.Checks, c.udev())
	}
	return r
}

func (c Checker) tool(name string) Check {
	path, err := c.lookPath(name)
	if err == nil {
		return Check{Name: name, OK: true, Detail: path}
	}

	// rustup installs cargo binaries outside the default PATH
	if (name == "cargo" || name == "wlink") && c.Home != "" {
		p := filepath.Join(c.Home, ".cargo", "bin", name)
		if _, err := os.Stat(p); err == nil {
			return Check{Name: name, OK: true, Detail: p + " (add ~/.cargo/bin to PATH)"}
		}
	}

	return Check{Name: name, Detail: "not found on PATH", Fix: remediation(name)}
}

func (c Checker) udev() Check {
	data, err := c.readFile(UdevRulePath)
	if err == nil && rulesCoverLinks(string(data)) {
		return Check{Name: "udev rule", OK: true, Detail: UdevRulePath}
	}
	detail := "missing " + UdevRulePath
	if err == nil {
		detail = UdevRulePath + " does not cover every WCH-Link mode"
	}
	return Check{Name: "udev rule", Detail: detail, Fix: remediation("udev")}
}

// rulesCoverLinks reports whether udev rules open up both WCH-Link product
// ids, either with a vendor-wide rule or one rule per product.
func rulesCoverLinks(rules string) bool {
	vendor := fmt.Sprintf(`ATTR{idVendor}=="%04x"`, uint16(VendorWCH))
	products := make(map[string]bool)
	for _, line := range strings.Split(rules, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") || !strings.Contains(line, vendor) {
			continue
		}
		_, rest, ok := strings.Cut(line, `ATTR{idProduct}=="`)
		if !ok {
			return true
		}
		pid, _, _ := strings.Cut(rest, `"`)
		products[strings.ToLower(pid)] = true
	}
	for _, pid := range []gousb.ID{ProductLinkRV, ProductLinkAR} {
		if !products[pid.String()] {
			return false
		}
	}
	return true
}

func remediation(name string) []string {
	switch name {
	case "git":
		return []string{"sudo apt-get update", "sudo apt-get install -y git"}
	case "cargo":
		return []string{"curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y"}
	case "wlink":
		return []string{"cargo install wlink"}
	case "pkg-config":
		return []string{"sudo apt-get update", "sudo apt-get install -y libusb-1.0-0 pkg-config"}
	case "udev":
		return []string{
			"echo '" + UdevRule + "' | sudo tee " + UdevRulePath,
			"sudo udevadm control --reload-rules",
			"sudo udevadm trigger",
		}
	}
	return nil
}
