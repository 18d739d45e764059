//go:build linux

package usbmon

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
)

// SysfsSource enumerates removable block devices under /sys/block and keeps
// only those attached via USB. Mount points are resolved from /proc/mounts.
type SysfsSource struct {
	// Root is the sysfs block directory, normally /sys/block.
	Root string

	// MountsPath is the mount table, normally /proc/mounts.
	MountsPath string
}

// NewPlatformSource returns the Linux device source.
func NewPlatformSource() (Source, error) {
	return &SysfsSource{Root: "/sys/block", MountsPath: "/proc/mounts"}, nil
}

func (s *SysfsSource) Devices(_ context.Context) ([]Device, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}

	mounts := s.mountPoints()

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		base := filepath.Join(s.Root, name)

		if readTrimmed(filepath.Join(base, "removable")) != "1" {
			continue
		}
		if !isUSB(base) {
			continue
		}

		devices = append(devices, Device{
			ID:    name,
			Drive: mounts["/dev/"+name],
			Label: readTrimmed(filepath.Join(base, "device", "model")),
		})
	}
	return devices, nil
}

// isUSB reports whether the block device sits on the USB bus, determined by
// the resolved sysfs device path.
func isUSB(base string) bool {
	target, err := filepath.EvalSymlinks(filepath.Join(base, "device"))
	if err != nil {
		return false
	}
	return strings.Contains(target, "/usb")
}

// mountPoints maps device nodes (including partitions) to their first mount
// point. Partition mounts are attributed to the parent disk.
func (s *SysfsSource) mountPoints() map[string]string {
	result := make(map[string]string)

	f, err := os.Open(s.MountsPath)
	if err != nil {
		return result
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		dev := strings.TrimRight(fields[0], "0123456789")
		if _, ok := result[dev]; !ok {
			result[dev] = fields[1]
		}
	}
	return result
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
