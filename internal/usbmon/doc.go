// Package usbmon watches the host for removable storage attach and detach
// events. A platform-specific Source enumerates the currently attached
// devices; the Monitor polls it and turns snapshot differences into arrival
// and removal events.
//
// On the first poll every already-attached device is reported as a synthetic
// arrival so that devices present before the daemon started still get gated.
package usbmon
