//go:build !windows && !linux

package usbmon

import "errors"

// NewPlatformSource reports that device monitoring is unsupported here.
func NewPlatformSource() (Source, error) {
	return nil, errors.New("usb monitoring is not supported on this platform")
}
