package constants

import "errors"

// Dm devices created by the installer carry this prefix in their dm uuid.
const InstallerTag = "ANACONDA-"

const (
	OpDetectMode     = "detect-mode"
	OpScanImages     = "scan-images"
	OpUnwindMounts   = "unwind-mounts"
	OpSettleDevices  = "settle-devices"
	OpTeardownImages = "teardown-images"
	OpWriteReport    = "write-report"
)

const (
	// Mountpoints never touched by the unwinder.
	TestMountPrefix = "/mnt/anactest"
	InitramfsDir    = "/run/initramfs"
	RootfsBase      = "/run/rootfsbase"

	// Mountpoints the installer owns, unmounted in every mode.
	SysimageDir   = "/mnt/sysimage"
	InstallDir    = "/mnt/install"
	RunInstallDir = "/run/install"

	// Markers for the live-install unmount rule.
	MediaMarker = "/media"
	DevPrefix   = "/dev"
	LiveMarker  = "live"

	// Presence of this device means we booted from live media.
	LiveBaseDevice = "/dev/mapper/live-base"

	LiveCmdlineStanza = "rd.live.image"
)

const (
	ConfigFile = "/etc/instclean/config.env"
	ReportFile = "/run/instclean/report.yaml"
)

func ProtectedPrefixes() []string {
	return []string{TestMountPrefix, InitramfsDir}
}

func InstallPrefixes() []string {
	return []string{SysimageDir, InstallDir, RunInstallDir}
}

var ErrNoBackingDevice = errors.New("device-mapper device has no backing device")
