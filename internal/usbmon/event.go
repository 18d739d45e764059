package usbmon

// EventKind distinguishes arrivals from removals.
type EventKind string

const (
	Arrived EventKind = "arrival"
	Removed EventKind = "removal"
)

// Device identifies one attached removable storage device.
type Device struct {
	// ID is the stable hardware identifier (PnP instance ID on Windows,
	// sysfs device name on Linux). Never empty.
	ID string

	// Drive is the mount point or drive letter, if known.
	Drive string

	// Label is the volume label, if known.
	Label string
}

// Event describes a single attach or detach observation.
type Event struct {
	Device Device
	Kind   EventKind

	// Synthetic marks arrivals reported for devices that were already
	// attached when monitoring started.
	Synthetic bool
}
