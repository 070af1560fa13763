package ble

import (
	"fmt"

	"github.com/hybridmesh/mesh-go/pkg/transport"
)

// FailureCode is a scan failure reported by the radio, numbered as the
// Android scanner reports them.
type FailureCode int

// Scan failure codes.
const (
	ScanFailedAlreadyStarted                FailureCode = 1
	ScanFailedApplicationRegistrationFailed FailureCode = 2
	ScanFailedInternalError                 FailureCode = 3
	ScanFailedFeatureUnsupported            FailureCode = 4
	ScanFailedOutOfHardwareResources        FailureCode = 5
	ScanFailedScanningTooFrequently         FailureCode = 6
)

// String returns the platform constant name.
func (c FailureCode) String() string {
	switch c {
	case ScanFailedAlreadyStarted:
		return "SCAN_FAILED_ALREADY_STARTED"
	case ScanFailedApplicationRegistrationFailed:
		return "SCAN_FAILED_APPLICATION_REGISTRATION_FAILED"
	case ScanFailedInternalError:
		return "SCAN_FAILED_INTERNAL_ERROR"
	case ScanFailedFeatureUnsupported:
		return "SCAN_FAILED_FEATURE_UNSUPPORTED"
	case ScanFailedOutOfHardwareResources:
		return "SCAN_FAILED_OUT_OF_HARDWARE_RESOURCES"
	case ScanFailedScanningTooFrequently:
		return "SCAN_FAILED_SCANNING_TOO_FREQUENTLY"
	default:
		return fmt.Sprintf("SCAN_FAILED_%d", int(c))
	}
}

// Err converts the code into a transport error. A missing scan feature
// means the radio is unusable; everything else is transient.
func (c FailureCode) Err() error {
	kind := transport.ErrDriverFailure
	if c == ScanFailedFeatureUnsupported {
		kind = transport.ErrRadioUnavailable
	}
	return transport.NewError(transport.KindBLE, kind, "BLE scan failed: "+c.String())
}
