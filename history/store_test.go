package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dylan/wchflash/chip"
	"github.com/dylan/wchflash/flasher"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "history.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Time: base, Chip: "CH32V003", Firmware: "/fw/a.bin", EraseMethod: "power-off", Speed: "low",
			SpeedsTried: []string{"low"}, Attempts: 3, Error: "firmware flash failed"},
		{Time: base.Add(time.Minute), Device: "VSD Squadran Mini (CH32V30X)", Chip: "CH32V30X",
			Firmware: "/fw/b.bin", EraseMethod: "power-off", Speed: "medium",
			SpeedsTried: []string{"low", "medium"}, Succeeded: true, Attempts: 4},
		{Time: base.Add(2 * time.Minute), Chip: "CH32V30X", Firmware: "/fw/c.bin", Succeeded: true, Attempts: 1},
	}
	for _, e := range entries {
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].Firmware != "/fw/c.bin" || got[1].Firmware != "/fw/b.bin" {
		t.Errorf("order = %s, %s", got[0].Firmware, got[1].Firmware)
	}
	if !got[1].Time.Equal(entries[1].Time) {
		t.Errorf("time = %s, want %s", got[1].Time, entries[1].Time)
	}
	if len(got[1].SpeedsTried) != 2 || got[1].SpeedsTried[1] != "medium" {
		t.Errorf("speeds tried = %v", got[1].SpeedsTried)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Succeeded || all[2].Error == "" {
		t.Errorf("oldest entry = %+v", all[len(all)-1])
	}

	sum, err := s.Summarize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum != (Summary{Total: 3, Succeeded: 2, Failed: 1}) {
		t.Errorf("Summarize() = %+v", sum)
	}
}

func TestLastFirmware(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fw, err := s.LastFirmware(ctx, "CH32V003")
	if err != nil || fw != "" {
		t.Fatalf("LastFirmware(empty) = %q, %v", fw, err)
	}

	s.Record(ctx, Entry{Chip: "CH32V003", Firmware: "/fw/good.bin", Succeeded: true})
	s.Record(ctx, Entry{Chip: "CH32V003", Firmware: "/fw/bad.bin"})

	fw, err = s.LastFirmware(ctx, "CH32V003")
	if err != nil {
		t.Fatal(err)
	}
	if fw != "/fw/good.bin" {
		t.Errorf("LastFirmware() = %q, want last successful image", fw)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(context.Background(), Entry{Chip: "CH57X", Firmware: "/fw/x.bin"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Chip != "CH57X" {
		t.Errorf("after reopen = %+v", got)
	}
}

func TestNewEntry(t *testing.T) {
	prof, _ := chip.Lookup("CH32V20X")
	req := flasher.Request{FirmwarePath: "fw.bin"}
	out := flasher.Outcome{
		Profile: prof,
		Options: chip.Options{EraseMethod: chip.EraseDefault, Speed: chip.SpeedMedium},
		Err:     errors.New("firmware flash failed"),
		Attempts: []flasher.Attempt{
			{FirmwarePath: "/abs/fw.bin", Options: chip.Options{Speed: chip.SpeedHigh}},
			{FirmwarePath: "/abs/fw.bin", Options: chip.Options{Speed: chip.SpeedHigh}},
			{FirmwarePath: "/abs/fw.bin", Options: chip.Options{Speed: chip.SpeedMedium}},
		},
	}

	e := NewEntry("Other WCH-Link devices", req, out)
	if e.Chip != "CH32V20X" || e.Firmware != "/abs/fw.bin" || e.Attempts != 3 {
		t.Errorf("entry = %+v", e)
	}
	if len(e.SpeedsTried) != 2 || e.SpeedsTried[0] != "high" || e.SpeedsTried[1] != "medium" {
		t.Errorf("SpeedsTried = %v", e.SpeedsTried)
	}
	if e.Succeeded || e.Error == "" {
		t.Errorf("failure not recorded: %+v", e)
	}

	e = NewEntry("", flasher.Request{Declared: chip.SquadranV003.Profile(), FirmwarePath: "missing.bin"},
		flasher.Outcome{Err: errors.New("invalid firmware")})
	if e.Chip != "CH32V003" || e.Firmware != "missing.bin" || e.Attempts != 0 {
		t.Errorf("early failure entry = %+v", e)
	}
}
