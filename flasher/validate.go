package flasher

import (
	"os"
	"path/filepath"
	"strings"
)

// FirmwareExt is the only image extension wlink is given.
const FirmwareExt = ".bin"

// ValidateFirmware checks the image once per request and returns its
// absolute path.
func ValidateFirmware(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ValidationError{Path: path, Reason: "no firmware file selected"}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &ValidationError{Path: path, Reason: err.Error()}
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &ValidationError{Path: path, Reason: "file not found"}
		}
		return "", &ValidationError{Path: path, Reason: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return "", &ValidationError{Path: path, Reason: "not a regular file"}
	}
	if !strings.EqualFold(filepath.Ext(abs), FirmwareExt) {
		return "", &ValidationError{Path: path, Reason: "expected a " + FirmwareExt + " image"}
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", &ValidationError{Path: path, Reason: "no permission to read firmware file"}
	}
	f.Close()

	return abs, nil
}
