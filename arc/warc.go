package arc

// archive raw HTTP responses from full-body fetches as .warc.gz files,
// so articles can be re-extracted later without hitting the origin again.

import (
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/bcampbell/warc"
)

// eg "abcdefg.foo" returns "a/ab/abc"
// keeps any one directory from filling up with thousands of files
func spreadPath(name string) string {
	numChunks := 3 // how many subdirs to use
	chunkSize := 1 // num chars per subdir

	if len(name) < numChunks*chunkSize {
		panic("name too short")
	}

	parts := make([]string, numChunks)
	for chunk := 0; chunk < numChunks; chunk++ {
		parts[chunk] = name[0 : (chunk+1)*chunkSize]
	}
	return path.Join(parts...)
}

// ArchiveResponse writes resp out under warcDir, in a location derived
// from the source URL (host + md5 spread), eg:
//
//	archive/www.example.com/0/0c/0ca/0cafebabe....warc.gz
//
// Overwrites any previous archive of the same URL.
func ArchiveResponse(warcDir string, resp *http.Response, srcURL string, timeStamp time.Time) error {
	u, err := url.Parse(srcURL)
	if err != nil {
		return err
	}

	hasher := md5.New()
	hasher.Write([]byte(srcURL))
	filename := hex.EncodeToString(hasher.Sum(nil)) + ".warc.gz"

	dir := path.Join(warcDir, u.Host, spreadPath(filename))
	err = os.MkdirAll(dir, 0777) // let umask cull the perms down...
	if err != nil {
		return err
	}

	outfile, err := os.Create(path.Join(dir, filename))
	if err != nil {
		return err
	}
	defer outfile.Close()

	gzw := gzip.NewWriter(outfile)
	defer gzw.Close()

	return warc.Write(gzw, resp, srcURL, timeStamp)
}
