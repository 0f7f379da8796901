package constants

import (
	"path/filepath"
	"strings"
)

// AllowedAudioExtensions holds the audio file extensions accepted for upload.
var AllowedAudioExtensions = map[string]struct{}{
	"mp3":  {},
	"wav":  {},
	"m4a":  {},
	"mp4":  {},
	"ogg":  {},
	"oga":  {},
	"webm": {},
	"flac": {},
	"aac":  {},
}

var audioMimeByExt = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"mp4":  "audio/mp4",
	"ogg":  "audio/ogg",
	"oga":  "audio/ogg",
	"webm": "audio/webm",
	"flac": "audio/flac",
	"aac":  "audio/aac",
}

// OpaqueAudioMime is the fallback content type when the key's extension is
// not a recognized audio format.
const OpaqueAudioMime = "application/octet-stream"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForAudioKey infers a content type from the storage key's file extension.
func MimeForAudioKey(key string) string {
	if mt, ok := audioMimeByExt[NormalizeExt(filepath.Ext(key))]; ok {
		return mt
	}
	return OpaqueAudioMime
}
