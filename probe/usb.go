package probe

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

// WCH USB ids.
const (
	VendorWCH     gousb.ID = 0x1a86
	ProductLinkRV gousb.ID = 0x8010 // WCH-Link(E) in RISC-V mode
	ProductLinkAR gousb.ID = 0x8012 // WCH-Link(E) in ARM/DAP mode
)

// USBAdapter is a WCH-Link found on the USB bus.
type USBAdapter struct {
	Bus     int
	Address int
	Product gousb.ID
	Name    string
	Serial  string
	// Err is set when the device is present but could not be opened.
	Err error
}

// Accessible reports whether the device could be opened by this user.
func (a USBAdapter) Accessible() bool { return a.Err == nil }

func (a USBAdapter) String() string {
	return fmt.Sprintf("%s %s:%s bus %d addr %d", a.Name, VendorWCH, a.Product, a.Bus, a.Address)
}

// ErrNoPermission is reported for adapters the udev rule has not opened up.
var ErrNoPermission = errors.New("permission denied opening USB device (is the udev rule installed?)")

func adapterName(pid gousb.ID) string {
	switch pid {
	case ProductLinkRV:
		return "WCH-Link (RISC-V mode)"
	case ProductLinkAR:
		return "WCH-Link (ARM mode)"
	}
	return "WCH device"
}

func isLink(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == VendorWCH && (desc.Product == ProductLinkRV || desc.Product == ProductLinkAR)
}

// USBAdapters lists attached WCH-Link adapters and whether they can be
// opened. Devices that enumerate but fail to open are returned with Err set.
func USBAdapters(log logrus.FieldLogger) ([]USBAdapter, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var found []USBAdapter
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !isLink(desc) {
			return false
		}
		found = append(found, USBAdapter{
			Bus:     desc.Bus,
			Address: desc.Address,
			Product: desc.Product,
			Name:    adapterName(desc.Product),
		})
		return true
	})
	for _, d := range devs {
		defer d.Close()
	}

	opened := make(map[[2]int]*gousb.Device, len(devs))
	for _, d := range devs {
		opened[[2]int{d.Desc.Bus, d.Desc.Address}] = d
	}

	for i := range found {
		a := &found[i]
		d, ok := opened[[2]int{a.Bus, a.Address}]
		if !ok {
			a.Err = openError(err)
			log.WithFields(logrus.Fields{"bus": a.Bus, "addr": a.Address}).WithError(a.Err).Warn("cannot open adapter")
			continue
		}
		if s, serr := d.SerialNumber(); serr == nil {
			a.Serial = s
		}
		log.WithField("adapter", a.String()).Debug("adapter found")
	}

	if len(found) == 0 && err != nil {
		return nil, fmt.Errorf("enumerating USB devices: %w", err)
	}
	return found, nil
}

func openError(err error) error {
	if errors.Is(err, gousb.ErrorAccess) {
		return ErrNoPermission
	}
	if err == nil {
		return errors.New("device could not be opened")
	}
	return err
}
