// ABOUTME: Version information for the audiosink binary
// ABOUTME: Printed in the startup banner and the -version output
package version

const (
	// Version is the release of this build
	Version = "0.3.0"

	// Product is the human readable product name
	Product = "Audio Sink"

	// Manufacturer identifies who ships the binary
	Manufacturer = "Sendspin"
)
