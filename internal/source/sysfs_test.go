package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeSysfsTree builds a fake iio:device0 with two accelerometer axes
// sharing one scale attribute plus a timestamp channel.
func writeSysfsTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dev := filepath.Join(root, "iio:device0")
	scanDir := filepath.Join(dev, "scan_elements")
	if err := os.MkdirAll(scanDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files := map[string]string{
		filepath.Join(dev, "name"):                   "icm20602\n",
		filepath.Join(dev, "in_accel_scale"):         "0.000598\n",
		filepath.Join(scanDir, "in_accel_x_en"):      "1\n",
		filepath.Join(scanDir, "in_accel_x_index"):   "0\n",
		filepath.Join(scanDir, "in_accel_x_type"):    "le:s16/16>>0\n",
		filepath.Join(scanDir, "in_accel_y_en"):      "1\n",
		filepath.Join(scanDir, "in_accel_y_index"):   "1\n",
		filepath.Join(scanDir, "in_accel_y_type"):    "le:s16/16>>0\n",
		filepath.Join(scanDir, "in_timestamp_en"):    "1\n",
		filepath.Join(scanDir, "in_timestamp_index"): "2\n",
		filepath.Join(scanDir, "in_timestamp_type"):  "le:s64/64>>0\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func TestOpenSysfsByDeviceName(t *testing.T) {
	root := writeSysfsTree(t)

	s, err := OpenSysfs("icm20602", root)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if s.DevicePath() != "/dev/iio:device0" {
		t.Errorf("unexpected device path %s", s.DevicePath())
	}

	if _, err := OpenSysfs("no-such-device", root); err == nil {
		t.Fatal("expected error for unknown device name")
	}
}

func TestSysfsChannels(t *testing.T) {
	root := writeSysfsTree(t)
	s, err := OpenSysfs("icm20602", root)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	raws, err := s.Channels(context.Background())
	if err != nil {
		t.Fatalf("channels failed: %v", err)
	}
	if len(raws) != 3 {
		t.Fatalf("expected 3 channels, got %d", len(raws))
	}

	byName := map[string]int{}
	for i, r := range raws {
		byName[r.Name] = i
	}
	ax := raws[byName["accel_x"]]
	if ax.Direction != "in" || ax.Enabled != "1" || ax.Index != "0" || ax.Type != "le:s16/16>>0" {
		t.Errorf("accel_x attrs wrong: %+v", ax)
	}
	// Scale comes from the shared in_accel_scale attribute.
	if ax.Scale != "0.000598" {
		t.Errorf("shared scale not picked up: %q", ax.Scale)
	}
	ts := raws[byName["timestamp"]]
	if ts.Scale != "" || ts.Offset != "" {
		t.Errorf("timestamp should have no calibration attrs: %+v", ts)
	}
}

func TestDeviceFileChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	d, err := OpenDeviceFile(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer d.Close()

	buf := make([]byte, 8)
	if err := d.Next(context.Background(), buf); err != nil {
		t.Fatalf("first chunk failed: %v", err)
	}
	if buf[0] != 1 || buf[7] != 8 {
		t.Fatalf("unexpected chunk contents %v", buf)
	}

	// Only 4 bytes remain: a truncated record is an error, not EOF.
	if err := d.Next(context.Background(), buf); err == nil {
		t.Fatal("expected error for truncated trailing record")
	}
}
