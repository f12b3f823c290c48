package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rjboer/iioview/scan"
)

// DefaultSysfsRoot is where the kernel exposes IIO devices.
const DefaultSysfsRoot = "/sys/bus/iio/devices"

// Sysfs discovers an IIO device by name under the sysfs hierarchy and exposes
// its scan-element descriptors. It also knows the matching character device
// path for buffered capture.
type Sysfs struct {
	Root    string // sysfs base, DefaultSysfsRoot if empty
	DevRoot string // character device dir, "/dev" if empty

	deviceDir string // e.g. <root>/iio:device0, set by Open
	devNum    string
}

// OpenSysfs locates the iio:deviceN directory whose name attribute matches
// deviceName.
func OpenSysfs(deviceName string, root string) (*Sysfs, error) {
	s := &Sysfs{Root: root}
	if s.Root == "" {
		s.Root = DefaultSysfsRoot
	}

	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("read sysfs root %s: %w", s.Root, err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "iio:device") {
			continue
		}
		name, err := readLine(filepath.Join(s.Root, e.Name(), "name"))
		if err != nil {
			continue
		}
		if name == deviceName {
			s.deviceDir = filepath.Join(s.Root, e.Name())
			s.devNum = strings.TrimPrefix(e.Name(), "iio:device")
			return s, nil
		}
	}
	return nil, fmt.Errorf("no IIO device named %q under %s", deviceName, s.Root)
}

// DevicePath returns the character device delivering this device's buffered
// records.
func (s *Sysfs) DevicePath() string {
	root := s.DevRoot
	if root == "" {
		root = "/dev"
	}
	return filepath.Join(root, "iio:device"+s.devNum)
}

// Channels enumerates the scan_elements directory. Every *_en file defines a
// channel; the filename encodes direction and channel name
// (e.g. in_accel_x_en).
func (s *Sysfs) Channels(_ context.Context) ([]scan.RawChannel, error) {
	scanDir := filepath.Join(s.deviceDir, "scan_elements")
	entries, err := os.ReadDir(scanDir)
	if err != nil {
		return nil, fmt.Errorf("read scan_elements: %w", err)
	}

	var raws []scan.RawChannel
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "_en") {
			continue
		}
		parts := strings.Split(e.Name(), "_")
		if len(parts) < 3 {
			continue
		}
		direction := parts[0]
		name := strings.Join(parts[1:len(parts)-1], "_")

		raws = append(raws, scan.RawChannel{
			Name:      name,
			Direction: direction,
			Enabled:   s.channelAttr(scanDir, direction, name, "en"),
			Index:     s.channelAttr(scanDir, direction, name, "index"),
			Type:      s.channelAttr(scanDir, direction, name, "type"),
			Offset:    s.channelAttr(s.deviceDir, direction, name, "offset"),
			Scale:     s.channelAttr(s.deviceDir, direction, name, "scale"),
		})
	}
	// ReadDir already sorts, but make the descriptor order explicit since
	// it is the collision tie-break.
	sort.Slice(raws, func(i, j int) bool { return raws[i].Name < raws[j].Name })
	return raws, nil
}

// channelAttr reads an attribute for a channel, falling back to the shared
// attribute of the channel's base name (in_accel_scale serving in_accel_x).
// Returns "" when neither exists, which resolution turns into a default.
func (s *Sysfs) channelAttr(dir, direction, name, postfix string) string {
	pattern := filepath.Join(dir, fmt.Sprintf("%s_%s*_%s", direction, name, postfix))
	paths, _ := filepath.Glob(pattern)
	if len(paths) == 0 {
		base := strings.SplitN(name, "_", 2)[0]
		pattern = filepath.Join(dir, fmt.Sprintf("%s_%s*_%s", direction, base, postfix))
		paths, _ = filepath.Glob(pattern)
	}
	if len(paths) == 0 {
		return ""
	}
	line, err := readLine(paths[0])
	if err != nil {
		return ""
	}
	return line
}

func readLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// DeviceFile streams fixed-size records from an IIO character device (or any
// file, which makes capture replay from disk trivial).
type DeviceFile struct {
	f *os.File
}

// OpenDeviceFile opens the character device for blocking chunked reads.
func OpenDeviceFile(path string) (*DeviceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}
	return &DeviceFile{f: f}, nil
}

// Next blocks until len(buf) bytes are read. A stream ending on a record
// boundary returns io.EOF; one ending mid-record returns a wrapped
// io.ErrUnexpectedEOF so the caller can distinguish a truncated capture.
func (d *DeviceFile) Next(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := io.ReadFull(d.f, buf)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read capture chunk: %w", err)
	}
	return nil
}

func (d *DeviceFile) Close() error {
	return d.f.Close()
}
