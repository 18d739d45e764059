//go:build windows

package usbmon

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// driveTypeRemovable is the Win32_LogicalDisk DriveType for removable disks.
const driveTypeRemovable = 2

type win32LogicalDisk struct {
	DeviceID   string
	VolumeName *string
}

type win32DiskDrive struct {
	Index       uint32
	PNPDeviceID string
}

type win32DiskDriveToDiskPartition struct {
	Antecedent string
	Dependent  string
}

type win32LogicalDiskToPartition struct {
	Antecedent string
	Dependent  string
}

// WMISource enumerates removable drives through WMI and resolves each drive
// letter back to the physical disk's PnP instance ID.
type WMISource struct{}

// NewPlatformSource returns the Windows device source.
func NewPlatformSource() (Source, error) {
	return &WMISource{}, nil
}

func (s *WMISource) Devices(_ context.Context) ([]Device, error) {
	var disks []win32LogicalDisk
	q := fmt.Sprintf("SELECT DeviceID, VolumeName FROM Win32_LogicalDisk WHERE DriveType=%d", driveTypeRemovable)
	if err := wmi.Query(q, &disks); err != nil {
		return nil, fmt.Errorf("query logical disks: %w", err)
	}
	if len(disks) == 0 {
		return nil, nil
	}

	ids, err := pnpIDByDriveLetter()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(disks))
	for _, d := range disks {
		letter := strings.ToUpper(d.DeviceID)
		id, ok := ids[letter]
		if !ok || id == "" {
			continue
		}
		label := ""
		if d.VolumeName != nil {
			label = *d.VolumeName
		}
		devices = append(devices, Device{ID: id, Drive: letter, Label: label})
	}
	return devices, nil
}

// pnpIDByDriveLetter maps drive letters to physical disk PnP instance IDs by
// chaining the two WMI association classes.
func pnpIDByDriveLetter() (map[string]string, error) {
	var drives []win32DiskDrive
	if err := wmi.Query("SELECT Index, PNPDeviceID FROM Win32_DiskDrive", &drives); err != nil {
		return nil, fmt.Errorf("query disk drives: %w", err)
	}
	pnpByIndex := make(map[int]string, len(drives))
	for _, d := range drives {
		pnpByIndex[int(d.Index)] = d.PNPDeviceID
	}

	var driveToPartition []win32DiskDriveToDiskPartition
	if err := wmi.Query("SELECT Antecedent, Dependent FROM Win32_DiskDriveToDiskPartition", &driveToPartition); err != nil {
		return nil, fmt.Errorf("query drive to partition: %w", err)
	}

	var partitionToLogical []win32LogicalDiskToPartition
	if err := wmi.Query("SELECT Antecedent, Dependent FROM Win32_LogicalDiskToPartition", &partitionToLogical); err != nil {
		return nil, fmt.Errorf("query partition to logical: %w", err)
	}

	indexByPartition := make(map[string]int)
	for _, rel := range driveToPartition {
		idx := extractDriveIndex(rel.Antecedent)
		partition := extractPartitionName(rel.Dependent)
		if idx >= 0 && partition != "" {
			indexByPartition[partition] = idx
		}
	}

	result := make(map[string]string)
	for _, rel := range partitionToLogical {
		letter := extractDriveLetter(rel.Dependent)
		partition := extractPartitionName(rel.Antecedent)
		if letter == "" || partition == "" {
			continue
		}
		if idx, ok := indexByPartition[partition]; ok {
			result[letter] = pnpByIndex[idx]
		}
	}
	return result, nil
}

var (
	driveLetterRe   = regexp.MustCompile(`DeviceID="([A-Z]:)"`)
	partitionRe     = regexp.MustCompile(`DeviceID="(Disk #\d+, Partition #\d+)"`)
	physicalDriveRe = regexp.MustCompile(`PHYSICALDRIVE(\d+)`)
)

func extractDriveLetter(wmiPath string) string {
	if m := driveLetterRe.FindStringSubmatch(wmiPath); len(m) >= 2 {
		return m[1]
	}
	return ""
}

func extractPartitionName(wmiPath string) string {
	if m := partitionRe.FindStringSubmatch(wmiPath); len(m) >= 2 {
		return m[1]
	}
	return ""
}

func extractDriveIndex(wmiPath string) int {
	m := physicalDriveRe.FindStringSubmatch(strings.ToUpper(wmiPath))
	if len(m) >= 2 {
		if idx, err := strconv.Atoi(m[1]); err == nil {
			return idx
		}
	}
	return -1
}
