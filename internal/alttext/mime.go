package alttext

import (
    "bytes"
    "mime"
    "net/url"
    "path"
    "strings"
)

// DetectMIME returns the image type of data. The URL extension wins when it
// maps to an image type; otherwise the magic bytes decide. Unknown data is
// reported as image/jpeg.
func DetectMIME(rawURL string, data []byte) string {
    if ext := urlExt(rawURL); ext != "" {
        if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
            if i := strings.IndexByte(t, ';'); i >= 0 {
                t = t[:i]
            }
            return t
        }
    }
    switch {
    case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
        return "image/jpeg"
    case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
        return "image/png"
    case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && bytes.Contains(data[:12], []byte("WEBP")):
        return "image/webp"
    case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
        return "image/gif"
    }
    return "image/jpeg"
}

func urlExt(rawURL string) string {
    p := rawURL
    if u, err := url.Parse(rawURL); err == nil {
        p = u.Path
    }
    return strings.ToLower(path.Ext(p))
}
