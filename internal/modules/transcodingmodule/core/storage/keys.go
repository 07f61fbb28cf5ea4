package storage

import (
	"path"
	"strings"
)

// MasterName is the object name of the master manifest
const MasterName = "master.m3u8"

// hlsDir is the prefix segment directories live under
const hlsDir = "hls"

// OriginalKey is where the raw upload is kept: {videoId}/original{ext}
func OriginalKey(videoID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return videoID + "/original" + ext
}

// RenditionKey is the encoded rendition file: {videoId}/{label}.mp4
func RenditionKey(videoID, label string) string {
	return videoID + "/" + label + ".mp4"
}

// SegmentPrefix is the directory of a rendition's chunks: {videoId}/hls/{label}
func SegmentPrefix(videoID, label string) string {
	return path.Join(videoID, hlsDir, label)
}

// SegmentKey is one chunk or sub-playlist: {videoId}/hls/{label}/{file}
func SegmentKey(videoID, label, file string) string {
	return path.Join(videoID, hlsDir, label, file)
}

// MasterKey is the manifest written last: {videoId}/master.m3u8
func MasterKey(videoID string) string {
	return videoID + "/" + MasterName
}

// SubPlaylistPath is the sub-playlist location relative to the master
// manifest, as referenced from inside it
func SubPlaylistPath(label, playlist string) string {
	return path.Join(hlsDir, label, playlist)
}

// ContentTypeFor picks the content type of an object from its name
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".m4s":
		return "video/iso.segment"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// validKey rejects keys that could escape a filesystem root
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
