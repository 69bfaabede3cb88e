package wlink

import (
	"regexp"
	"strings"
)

// Bullet prefixes every prettified line.
const Bullet = "► "

var (
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	// wlink log lines look like "12:00:01 [INFO] Connected to ..." or
	// "[2024-05-01T12:00:01Z INFO  wlink::operations] Flash done".
	levelTagPattern = regexp.MustCompile(`^.*?\[[^\]]*\b(TRACE|DEBUG|INFO|WARN|ERROR)\b[^\]]*\]\s*`)
)

type lineRule struct {
	match   func(line string) bool
	rewrite func(line string) string
}

func after(sep string) func(string) string {
	return func(line string) string {
		return line[strings.Index(line, sep)+len(sep):]
	}
}

func contains(sub string) func(string) bool {
	return func(line string) bool { return strings.Contains(line, sub) }
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

// Rules are checked in order; the first match wins.
var lineRules = []lineRule{
	{contains("Connected to"), func(l string) string { return "Connected to" + after("Connected to")(l) }},
	{func(l string) bool { return strings.HasSuffix(strings.ToLower(l), "chip by poweroff") }, fixed("Erase chip by PowerOff")},
	{contains("ChipID:"), func(l string) string { return "Chip ID:" + after("ChipID:")(l) }},
	{contains("ESIG:"), func(l string) string { return "Chip ESIG:" + after("ESIG:")(l) }},
	{contains("Flash protected:"), func(l string) string { return "Flash protected:" + after("protected:")(l) }},
	{func(l string) bool { return strings.Contains(l, "Read") && strings.Contains(l, ".bin") }, fixed("Reading firmware file...")},
	{contains("Flashing"), fixed("Flashing firmware to device...")},
	{contains("Read protected:"), func(l string) string { return "Read protected:" + after("protected:")(l) }},
	{contains("Flash done"), fixed("Flash completed successfully")},
	{contains("Now reset"), fixed("Resetting device...")},
}

// StripLine removes ANSI escapes and the log level tag from one line.
func StripLine(line string) string {
	line = ansiPattern.ReplaceAllString(line, "")
	line = levelTagPattern.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// Prettify turns raw wlink stdout into short bullet lines. Blank lines are
// dropped.
func Prettify(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		clean := StripLine(line)
		if strings.Trim(clean, "► ") == "" {
			continue
		}

		out := ""
		for _, r := range lineRules {
			if r.match(clean) {
				out = Bullet + r.rewrite(clean)
				break
			}
		}
		if out == "" {
			if strings.HasPrefix(clean, Bullet) {
				out = clean
			} else {
				out = Bullet + clean
			}
		}
		lines = append(lines, out)
	}
	return lines
}
