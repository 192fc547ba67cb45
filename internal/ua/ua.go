// internal/ua/ua.go
//
// User-Agent classification for the access log.
//
// This wrapper isolates the third-party `github.com/avct/uasurfer` API so
// the rest of the codebase never sees its enums or structs.  If we ever
// swap parsers, only this file changes.
package ua

import (
	surfer "github.com/avct/uasurfer"
	"go.uber.org/zap/zapcore"
)

// Info is the coarse client fingerprint logged with every request.
//
// Example (Chrome on macOS):
//
//	Browser "BrowserChrome"
//	OS      "OSMacOSX"
//	Device  "desktop"
//	IsBot   false
//
// Device is one of "desktop", "mobile", "tablet", or "other".
type Info struct {
	Browser string
	OS      string
	Device  string
	IsBot   bool
}

// Parse classifies a raw User-Agent header.  An empty header yields the
// zero-ish Info with Device "other".
func Parse(raw string) Info {
	u := surfer.Parse(raw)

	info := Info{
		Browser: u.Browser.Name.String(),
		OS:      u.OS.Name.String(),
		IsBot:   u.IsBot(),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "desktop"
	case surfer.DeviceTablet:
		info.Device = "tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "mobile"
	default:
		info.Device = "other"
	}
	return info
}

// MarshalLogObject lets Info ride in a zap.Object field.
func (i Info) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("browser", i.Browser)
	enc.AddString("os", i.OS)
	enc.AddString("device", i.Device)
	enc.AddBool("bot", i.IsBot)
	return nil
}
