// Package qrcode renders otpauth:// provisioning URIs as PNG QR codes for
// authenticator apps.
//
//	uri, _ := qrcode.DataURI(key.URL(), qrcode.WithSize(200))
//	// <img src="{{ .QRCode }}">
package qrcode
