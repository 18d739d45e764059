package locker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// PowerShellMechanism toggles a device through Enable-PnpDevice and
// Disable-PnpDevice. Primary mechanism on Windows.
type PowerShellMechanism struct {
	// Shell is the executable to invoke. Defaults to "powershell".
	Shell string
}

// Name implements Mechanism.
func (m PowerShellMechanism) Name() string { return "powershell" }

// Apply implements Mechanism.
func (m PowerShellMechanism) Apply(ctx context.Context, deviceID string, enable bool) error {
	shell := m.Shell
	if shell == "" {
		shell = "powershell"
	}

	out, err := exec.CommandContext(ctx, shell, "-NoProfile", "-Command", m.script(deviceID, enable)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("powershell: %w: %s", err, firstLine(out))
	}
	if !strings.Contains(string(out), "Success") {
		return fmt.Errorf("powershell: unexpected output: %s", firstLine(out))
	}
	return nil
}

// script builds the PnpDevice toggle command. The device is looked up first
// so a missing device fails with a distinct marker instead of a cmdlet error.
func (m PowerShellMechanism) script(deviceID string, enable bool) string {
	verb := "Disable-PnpDevice"
	if enable {
		verb = "Enable-PnpDevice"
	}
	// Single quotes in PowerShell literals are escaped by doubling.
	id := strings.ReplaceAll(deviceID, "'", "''")
	return fmt.Sprintf(
		"$device = Get-PnpDevice -InstanceId '%s' -ErrorAction SilentlyContinue\n"+
			"if ($null -eq $device) { Write-Output 'DeviceNotFound'; exit 1 }\n"+
			"%s -InstanceId '%s' -Confirm:$false -ErrorAction Stop\n"+
			"Write-Output 'Success'",
		id, verb, id)
}

// PnputilMechanism toggles a device through pnputil. Fallback mechanism on
// Windows; pnputil keeps working when the PnpDevice cmdlets are unavailable.
type PnputilMechanism struct {
	// Path is the pnputil executable. Defaults to "pnputil".
	Path string
}

// Name implements Mechanism.
func (m PnputilMechanism) Name() string { return "pnputil" }

// Apply implements Mechanism.
func (m PnputilMechanism) Apply(ctx context.Context, deviceID string, enable bool) error {
	path := m.Path
	if path == "" {
		path = "pnputil"
	}

	out, err := exec.CommandContext(ctx, path, m.args(deviceID, enable)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("pnputil: %w: %s", err, firstLine(out))
	}
	return nil
}

func (m PnputilMechanism) args(deviceID string, enable bool) []string {
	verb := "/disable-device"
	if enable {
		verb = "/enable-device"
	}
	return []string{verb, deviceID, "/force"}
}

// SysfsMechanism toggles the authorized flag of a USB device under sysfs.
// Primary mechanism on Linux; deviceID is the sysfs device name
// (e.g. "1-1.4").
type SysfsMechanism struct {
	// Root is the usb devices directory. Defaults to /sys/bus/usb/devices.
	Root string
}

// Name implements Mechanism.
func (m SysfsMechanism) Name() string { return "sysfs" }

// Apply implements Mechanism.
func (m SysfsMechanism) Apply(ctx context.Context, deviceID string, enable bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	root := m.Root
	if root == "" {
		root = "/sys/bus/usb/devices"
	}

	val := []byte("0")
	if enable {
		val = []byte("1")
	}
	path := filepath.Join(root, deviceID, "authorized")
	if err := os.WriteFile(path, val, 0o644); err != nil {
		return fmt.Errorf("sysfs: %w", err)
	}
	return nil
}

// UhubctlMechanism toggles USB port power via the uhubctl utility. Fallback
// mechanism on Linux for hubs with per-port power switching.
type UhubctlMechanism struct {
	// Path is the uhubctl executable. Defaults to "uhubctl".
	Path string
}

// Name implements Mechanism.
func (m UhubctlMechanism) Name() string { return "uhubctl" }

// Apply implements Mechanism.
func (m UhubctlMechanism) Apply(ctx context.Context, deviceID string, enable bool) error {
	path := m.Path
	if path == "" {
		path = "uhubctl"
	}

	action := "off"
	if enable {
		action = "on"
	}
	out, err := exec.CommandContext(ctx, path, "-a", action, "-l", deviceID).CombinedOutput()
	if err != nil {
		return fmt.Errorf("uhubctl: %w: %s", err, firstLine(out))
	}
	return nil
}

// DefaultMechanisms returns the platform's primary and fallback mechanisms.
func DefaultMechanisms() (primary, fallback Mechanism) {
	if runtime.GOOS == "windows" {
		return PowerShellMechanism{}, PnputilMechanism{}
	}
	return SysfsMechanism{}, UhubctlMechanism{}
}

// firstLine trims command output to its first non-empty line for diagnostics.
func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return "(no output)"
}
